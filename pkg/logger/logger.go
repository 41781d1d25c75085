// Package logger wraps zap with the field vocabulary of the chat store.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger with chat store helpers.
type Logger struct {
	*zap.Logger
}

// New builds the production JSON logger at level. Unknown levels log at info.
func New(level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z}, nil
}

// NewDevelopment builds a colored console logger.
func NewDevelopment() (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: z}, nil
}

// NewForEnv picks the development logger when ENV=development.
func NewForEnv(level string) (*Logger, error) {
	if os.Getenv("ENV") == "development" {
		return NewDevelopment()
	}
	return New(level)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FromCore wraps an existing core, mainly for tests.
func FromCore(core zapcore.Core) *Logger {
	return &Logger{Logger: zap.New(core)}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a child logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// ForConversation returns a child logger scoped to one conversation.
func (l *Logger) ForConversation(id string) *Logger {
	return l.With(ConversationID(id))
}

// Field helpers, so every package logs ids under the same keys.

func ConversationID(id string) zap.Field { return zap.String("conversation_id", id) }

func MessageID(id string) zap.Field { return zap.String("message_id", id) }

func FolderID(id string) zap.Field { return zap.String("folder_id", id) }

func CorrelationID(id string) zap.Field { return zap.String("correlation_id", id) }

func UserID(id string) zap.Field { return zap.String("user_id", id) }

// Op names the store mutation or handler step being logged.
func Op(name string) zap.Field { return zap.String("op", name) }

var global = NewNop()

// Global returns the process logger set by SetGlobal, or a no-op logger.
func Global() *Logger {
	return global
}

// SetGlobal replaces the process logger.
func SetGlobal(l *Logger) {
	global = l
}
