package translate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient translates through the Anthropic messages API.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates an Anthropic-backed client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	return &AnthropicClient{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

func (c *AnthropicClient) Name() string { return string(ProviderAnthropic) }

// Translate sends the field as a single user turn with the instructions as
// the system prompt.
func (c *AnthropicClient) Translate(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()

	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(model),
		MaxTokens: anthropic.F(int64(maxTokens(req))),
		Messages: anthropic.F([]anthropic.MessageParam{{
			Role:    anthropic.F(anthropic.MessageParamRole("user")),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{textBlock(req.Text)}),
		}}),
	}
	if req.Instructions != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{textBlock(req.Instructions)})
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Text:      text.String(),
		Model:     msg.Model,
		TokensIn:  int(msg.Usage.InputTokens),
		TokensOut: int(msg.Usage.OutputTokens),
		Elapsed:   time.Since(started),
	}, nil
}

func textBlock(text string) anthropic.TextBlockParam {
	return anthropic.TextBlockParam{
		Type: anthropic.F(anthropic.TextBlockParamTypeText),
		Text: anthropic.F(text),
	}
}
