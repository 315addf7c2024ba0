package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

var errNotConfigured = errors.New("notification function url not configured")

// FunctionConfig configures the HTTP function endpoints.
type FunctionConfig struct {
	EmailURL  string
	PushURL   string
	AuthToken string
	Timeout   time.Duration
}

// FunctionClient calls the email and push functions over HTTP. Nothing is
// retried.
type FunctionClient struct {
	cfg    FunctionConfig
	http   *http.Client
	logger *logger.Logger
}

// NewFunctionClient creates a function client.
func NewFunctionClient(cfg FunctionConfig, log *logger.Logger) *FunctionClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &FunctionClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log.Named("notify"),
	}
}

// SendEmail posts msg to the email function.
func (c *FunctionClient) SendEmail(ctx context.Context, msg EmailMessage) Result {
	res := c.call(ctx, c.cfg.EmailURL, msg)
	metrics.RecordNotification(ChannelEmail, res.Success)
	if !res.Success {
		c.logger.Warn("email delivery failed", zap.String("to", msg.To), zap.String("error", res.Error))
	}
	return res
}

// SendPush posts msg to the push function.
func (c *FunctionClient) SendPush(ctx context.Context, msg PushMessage) Result {
	res := c.call(ctx, c.cfg.PushURL, msg)
	metrics.RecordNotification(ChannelPush, res.Success)
	if !res.Success {
		c.logger.Warn("push delivery failed", zap.String("error", res.Error))
	}
	return res
}

func (c *FunctionClient) call(ctx context.Context, url string, payload any) Result {
	if url == "" {
		return Failed(errNotConfigured)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Failed(fmt.Errorf("failed to encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Failed(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Failed(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Failed(fmt.Errorf("failed to read response: %w", err))
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Result{Error: fmt.Sprintf("function returned status %d", resp.StatusCode)}
		}
		return Failed(fmt.Errorf("failed to decode response: %w", err))
	}
	if !res.Success && res.Error == "" {
		res.Error = fmt.Sprintf("function returned status %d", resp.StatusCode)
	}
	return res
}
