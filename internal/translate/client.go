// Package translate machine-translates master-data fields through a hosted
// model provider.
package translate

import (
	"context"
	"fmt"
	"time"
)

// Request is one field to translate.
type Request struct {
	Model        string
	Instructions string
	Text         string
	MaxTokens    int
}

// Response is the provider's answer with usage figures for logging.
type Response struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
	Elapsed   time.Duration
}

// Client is a model provider able to answer a translation request.
type Client interface {
	Translate(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// Provider names a supported provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const defaultMaxTokens = 512

// NewClient returns the client for provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown translation provider %q", provider)
	}
}

func maxTokens(req *Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
