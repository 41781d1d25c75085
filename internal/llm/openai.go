package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIClient answers prompts with the OpenAI chat completions API.
type OpenAIClient struct {
	api *openai.Client
}

// NewOpenAIClient returns a client authenticated with apiKey.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	return &OpenAIClient{api: openai.NewClient(apiKey)}, nil
}

func (c *OpenAIClient) Name() string { return string(ProviderOpenAI) }

func openAIRequest(req Request, stream bool) openai.ChatCompletionRequest {
	turns := make([]openai.ChatCompletionMessage, 0, len(req.Turns))
	for _, t := range req.Turns {
		turns = append(turns, openai.ChatCompletionMessage{Role: string(t.Role), Content: t.Text})
	}
	return openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  turns,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
}

// Complete returns the first choice of a single completion.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Reply, error) {
	req = req.withDefaults(openAIDefaultModel)
	began := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openAIRequest(req, false))
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Model:   resp.Model,
		Usage:   Usage{In: resp.Usage.PromptTokens, Out: resp.Usage.CompletionTokens},
		Latency: time.Since(began),
	}
	if len(resp.Choices) > 0 {
		reply.Text = resp.Choices[0].Message.Content
		reply.StopReason = string(resp.Choices[0].FinishReason)
	}
	return reply, nil
}

// Stream relays content deltas to onToken. The stream carries no usage
// block, so both counts are estimated from length.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onToken TokenFunc) (Reply, error) {
	req = req.withDefaults(openAIDefaultModel)
	began := time.Now()

	stream, err := c.api.CreateChatCompletionStream(ctx, openAIRequest(req, true))
	if err != nil {
		return Reply{}, err
	}
	defer stream.Close()

	reply := Reply{Model: req.Model}
	var text strings.Builder
	n := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Reply{}, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			text.WriteString(choice.Delta.Content)
			if err := onToken(choice.Delta.Content, n); err != nil {
				return Reply{}, err
			}
			n++
		}
		if choice.FinishReason != "" {
			reply.StopReason = string(choice.FinishReason)
		}
	}

	reply.Text = text.String()
	reply.Usage = Usage{In: req.promptLength() / 4, Out: text.Len() / 4}
	reply.Latency = time.Since(began)
	return reply, nil
}
