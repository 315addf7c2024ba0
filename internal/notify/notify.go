// Package notify delivers email and push notifications through the
// platform's serverless functions, directly over HTTP or queued on RabbitMQ.
package notify

import "context"

// Channels reported in metrics and logs.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// EmailMessage is the payload accepted by the email function.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// PushMessage is the payload accepted by the push function.
type PushMessage struct {
	Token string         `json:"token"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Result is the outcome of a single delivery. Failures are reported here
// rather than as errors so a batch send can keep going.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failed builds an unsuccessful Result.
func Failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Sender delivers notifications.
type Sender interface {
	SendEmail(ctx context.Context, msg EmailMessage) Result
	SendPush(ctx context.Context, msg PushMessage) Result
}
