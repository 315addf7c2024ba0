package translate

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient translates through the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI-backed client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return &OpenAIClient{client: openai.NewClient(apiKey)}, nil
}

func (c *OpenAIClient) Name() string { return string(ProviderOpenAI) }

// Translate runs one low-temperature completion for the field.
func (c *OpenAIClient) Translate(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()

	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	turns := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: req.Text}}
	if req.Instructions != "" {
		turns = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		}}, turns...)
	}

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    turns,
		MaxTokens:   maxTokens(req),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return &Response{
		Text:      completion.Choices[0].Message.Content,
		Model:     completion.Model,
		TokensIn:  completion.Usage.PromptTokens,
		TokensOut: completion.Usage.CompletionTokens,
		Elapsed:   time.Since(started),
	}, nil
}
