package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ErrEmptyTranslation is returned when the provider answers with nothing.
var ErrEmptyTranslation = errors.New("provider returned an empty translation")

const instructions = "You translate short labels and descriptions for a cultural-heritage tourism app. " +
	"Reply with the translated text only, no quotes, no explanations."

// Translator turns master-data text into another language.
type Translator struct {
	client Client
	model  string
	logger *logger.Logger
}

// NewTranslator creates a translator on client. model may be empty to use
// the provider default.
func NewTranslator(client Client, model string, log *logger.Logger) *Translator {
	return &Translator{
		client: client,
		model:  model,
		logger: log.Named("translate"),
	}
}

// Translate translates text into the language identified by lang (BCP 47).
func (t *Translator) Translate(ctx context.Context, text, lang string) (string, error) {
	resp, err := t.client.Translate(ctx, &Request{
		Model:        t.model,
		Instructions: instructions + " Target language: " + lang + ".",
		Text:         text,
	})
	if err != nil {
		return "", fmt.Errorf("%s translation failed: %w", t.client.Name(), err)
	}

	out := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Text), `"`))
	if out == "" {
		return "", ErrEmptyTranslation
	}

	t.logger.Debug("translated field",
		zap.String("provider", t.client.Name()),
		zap.String("lang", lang),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.Duration("elapsed", resp.Elapsed),
	)
	return out, nil
}
