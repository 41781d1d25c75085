package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultModel = "claude-3-5-haiku-20241022"

// AnthropicClient answers prompts with the Anthropic Messages API.
type AnthropicClient struct {
	api *anthropic.Client
}

// NewAnthropicClient returns a client authenticated with apiKey.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	return &AnthropicClient{api: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

func (c *AnthropicClient) Name() string { return string(ProviderAnthropic) }

func anthropicParams(req Request) anthropic.MessageNewParams {
	turns := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, t := range req.Turns {
		block := anthropic.TextBlockParam{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(t.Text),
		}
		turns = append(turns, anthropic.MessageParam{
			Role:    anthropic.F(anthropic.MessageParamRole(t.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{block}),
		})
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.F(req.Model),
		MaxTokens: anthropic.F(int64(req.MaxTokens)),
		Messages:  anthropic.F(turns),
	}
}

// Complete returns the whole reply in one call.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Reply, error) {
	req = req.withDefaults(anthropicDefaultModel)
	began := time.Now()

	msg, err := c.api.Messages.New(ctx, anthropicParams(req))
	if err != nil {
		return Reply{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}
	return Reply{
		Text:       text.String(),
		Model:      msg.Model,
		Usage:      Usage{In: int(msg.Usage.InputTokens), Out: int(msg.Usage.OutputTokens)},
		StopReason: string(msg.StopReason),
		Latency:    time.Since(began),
	}, nil
}

// Stream relays text deltas to onToken. Input usage is not part of the
// delta events and is estimated from the prompt length.
func (c *AnthropicClient) Stream(ctx context.Context, req Request, onToken TokenFunc) (Reply, error) {
	req = req.withDefaults(anthropicDefaultModel)
	began := time.Now()

	stream := c.api.Messages.NewStreaming(ctx, anthropicParams(req))
	reply := Reply{Model: req.Model, Usage: Usage{In: req.promptLength() / 4}}

	var text strings.Builder
	n := 0
	for stream.Next() {
		ev := stream.Current()
		switch ev.Type {
		case anthropic.MessageStreamEventTypeContentBlockDelta:
			if ev.Delta.Type != "text_delta" {
				continue
			}
			text.WriteString(ev.Delta.Text)
			if err := onToken(ev.Delta.Text, n); err != nil {
				return Reply{}, err
			}
			n++
		case anthropic.MessageStreamEventTypeMessageDelta:
			reply.StopReason = string(ev.Delta.StopReason)
			reply.Usage.Out = int(ev.Usage.OutputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return Reply{}, err
	}

	reply.Text = text.String()
	reply.Latency = time.Since(began)
	return reply, nil
}
