// Package llm turns a chat prompt into an assistant reply through a hosted
// completion provider.
package llm

import (
	"context"
	"fmt"
	"time"
)

// TokenFunc receives each reply fragment as the provider streams it.
// Returning an error aborts the stream.
type TokenFunc func(token string, index int) error

// Role is the author of a turn sent to the provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prompt message.
type Turn struct {
	Role Role
	Text string
}

// Request is a completion request. Zero Model and MaxTokens take the
// provider defaults.
type Request struct {
	Model     string
	Turns     []Turn
	MaxTokens int
}

// Usage is the token accounting reported for a reply.
type Usage struct {
	In  int
	Out int
}

// Reply is a finished completion.
type Reply struct {
	Text       string
	Model      string
	Usage      Usage
	StopReason string
	Latency    time.Duration
}

// Client is a completion provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Reply, error)
	Stream(ctx context.Context, req Request, onToken TokenFunc) (Reply, error)
	Name() string
}

// Provider names a supported completion provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// DefaultMaxTokens caps replies when the request leaves MaxTokens unset.
const DefaultMaxTokens = 4096

// NewClient returns the client for provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	}
	return nil, fmt.Errorf("unknown llm provider %q", provider)
}

func (r Request) withDefaults(model string) Request {
	if r.Model == "" {
		r.Model = model
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}

func (r Request) promptLength() int {
	n := 0
	for _, t := range r.Turns {
		n += len(t.Text)
	}
	return n
}
