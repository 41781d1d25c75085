package llm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatstore/pkg/logger"
	"github.com/capitalize-ai/chatstore/pkg/metrics"
	"github.com/capitalize-ai/chatstore/pkg/tracing"
)

// Generator produces the assistant reply for a single user prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onToken TokenFunc) (string, error)
}

// ClientGenerator sends each prompt as a one-turn completion through a Client.
type ClientGenerator struct {
	client Client
	model  string
	logger *logger.Logger
}

// NewGenerator wraps client. An empty model uses the provider default.
func NewGenerator(client Client, model string, log *logger.Logger) *ClientGenerator {
	if log == nil {
		log = logger.NewNop()
	}
	return &ClientGenerator{client: client, model: model, logger: log.Named("llm")}
}

// Generate returns the full reply to prompt.
func (g *ClientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.run(ctx, "generate", prompt, g.client.Complete)
}

// GenerateStream returns the full reply to prompt, passing each token to
// onToken as it arrives.
func (g *ClientGenerator) GenerateStream(ctx context.Context, prompt string, onToken TokenFunc) (string, error) {
	return g.run(ctx, "generate_stream", prompt, func(ctx context.Context, req Request) (Reply, error) {
		return g.client.Stream(ctx, req, onToken)
	})
}

func (g *ClientGenerator) run(ctx context.Context, op, prompt string, call func(context.Context, Request) (Reply, error)) (string, error) {
	provider := g.client.Name()
	ctx, span := tracing.Tracer().Start(ctx, "llm."+op)
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", provider))

	began := time.Now()
	reply, err := call(ctx, Request{
		Model: g.model,
		Turns: []Turn{{Role: RoleUser, Text: prompt}},
	})
	elapsed := time.Since(began).Seconds()

	if err != nil {
		metrics.RecordCompletion(provider, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("completion failed",
			zap.String("provider", provider),
			logger.Op(op),
			zap.Error(err),
		)
		return "", err
	}

	metrics.RecordCompletion(provider, "ok", elapsed)
	metrics.RecordTokens(reply.Model, reply.Usage.In, reply.Usage.Out)
	span.SetAttributes(
		attribute.String("llm.model", reply.Model),
		attribute.Int("llm.tokens_in", reply.Usage.In),
		attribute.Int("llm.tokens_out", reply.Usage.Out),
	)
	g.logger.Debug("completion finished",
		zap.String("provider", provider),
		zap.String("model", reply.Model),
		zap.String("stop_reason", reply.StopReason),
		zap.Duration("latency", reply.Latency),
	)
	return reply.Text, nil
}

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = errors.New("no completion provider configured")

// Unavailable is the Generator used when no provider is configured. Every
// call fails, so senders get the error reply.
type Unavailable struct{}

// Generate always fails.
func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// GenerateStream always fails.
func (Unavailable) GenerateStream(context.Context, string, TokenFunc) (string, error) {
	return "", ErrUnavailable
}
