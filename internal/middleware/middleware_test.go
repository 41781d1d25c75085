package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/chatstore/pkg/logger"
)

func TestValidation(t *testing.T) {
	assert.Error(t, ValidateMessageText(""))
	assert.Error(t, ValidateMessageText(strings.Repeat("a", maxMessageLength+1)))
	assert.Error(t, ValidateMessageText("\xff"))
	assert.NoError(t, ValidateMessageText("hello"))

	assert.NoError(t, ValidateTitle(""))
	assert.NoError(t, ValidateTitle(strings.Repeat("é", maxTitleLength)))
	assert.Error(t, ValidateTitle(strings.Repeat("é", maxTitleLength+1)))

	assert.Error(t, ValidateFolderName(""))
	assert.NoError(t, ValidateFolderName("Work"))

	assert.Error(t, ValidateEmoji(""))
	assert.NoError(t, ValidateEmoji("👍"))
}

func TestIdentity(t *testing.T) {
	var got string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, DefaultUserID, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "alice")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "alice", got)
}

func TestLogging_SetsCorrelationID(t *testing.T) {
	var ctxID string
	h := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotEmpty(t, ctxID)
	assert.Equal(t, ctxID, rec.Header().Get(CorrelationIDHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", ctxID)
}

func TestLogging_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	status := http.StatusOK
	h := Logging(logger.FromCore(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	for _, tc := range []struct {
		path   string
		status int
		level  zapcore.Level
	}{
		{"/api/v1/conversations", http.StatusOK, zapcore.InfoLevel},
		{"/api/v1/conversations/x", http.StatusNotFound, zapcore.WarnLevel},
		{"/api/v1/chat", http.StatusInternalServerError, zapcore.ErrorLevel},
		{"/health", http.StatusOK, zapcore.DebugLevel},
	} {
		status = tc.status
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

		entries := logs.TakeAll()
		require.Len(t, entries, 1, tc.path)
		assert.Equal(t, tc.level, entries[0].Level, tc.path)
		assert.EqualValues(t, tc.status, entries[0].ContextMap()["status"], tc.path)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}
