package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

const (
	// StreamName is the name of the row-change stream.
	StreamName = "ROW_CHANGES"

	// SubjectPrefix is the prefix for all change subjects.
	SubjectPrefix = "db"
)

// ChangeFeed implements realtime.Feed on top of JetStream. Publishes are
// persisted in the stream and both live subscribers and replays read from it.
type ChangeFeed struct {
	client     *Client
	bufferSize int
}

// NewChangeFeed creates a change feed on client.
func NewChangeFeed(client *Client, bufferSize int) *ChangeFeed {
	return &ChangeFeed{client: client, bufferSize: bufferSize}
}

// EnsureStream ensures the change stream exists with proper configuration.
func (f *ChangeFeed) EnsureStream(ctx context.Context) error {
	js := f.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxBytes:    5 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Row-level changes for console tables",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Subject returns the subject for a change on table.
func Subject(table string, typ model.ChangeType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, table, typ)
}

// FilterSubject returns the narrowest subject covering filter.
func FilterSubject(filter realtime.Filter) string {
	if filter.Table == "" {
		return SubjectPrefix + ".>"
	}
	if len(filter.Types) == 1 {
		return Subject(filter.Table, filter.Types[0])
	}
	return fmt.Sprintf("%s.%s.*", SubjectPrefix, filter.Table)
}

// Publish persists ev in the stream. The event id doubles as the JetStream
// message id so republished events are deduplicated inside the window.
func (f *ChangeFeed) Publish(ctx context.Context, ev model.ChangeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CommitTime.IsZero() {
		ev.CommitTime = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.client.JetStream().Publish(ctx, Subject(ev.Table, ev.Type), data, jetstream.WithMsgID(ev.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RealtimeEventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	return nil
}

// Subscribe opens a live subscription for filter. It reads through an
// ordered consumer that starts at the next stored message, so every event
// carries its stream sequence and can serve as an SSE resume point.
func (f *ChangeFeed) Subscribe(ctx context.Context, filter realtime.Filter) (*realtime.Subscription, error) {
	consumer, err := f.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{FilterSubject(filter)},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create live consumer: %w", err)
	}

	var consumeCtx jetstream.ConsumeContext
	sub := realtime.NewSubscription(filter, f.bufferSize, func() {
		if consumeCtx != nil {
			consumeCtx.Stop()
		}
	})

	consumeCtx, err = consumer.Consume(func(msg jetstream.Msg) {
		ev, err := decodeMessage(msg)
		if err != nil {
			f.client.logger.Warn("dropping undecodable change event", zap.String("subject", msg.Subject()), zap.Error(err))
			return
		}
		sub.Deliver(ev)
	})
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	return sub, nil
}

// streamMessage is the part of a JetStream message an event is built from.
type streamMessage interface {
	Data() []byte
	Metadata() (*jetstream.MsgMetadata, error)
}

// decodeMessage unmarshals a stored event and stamps its stream sequence.
func decodeMessage(msg streamMessage) (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		return ev, err
	}
	meta, err := msg.Metadata()
	if err != nil {
		return ev, fmt.Errorf("reading message metadata: %w", err)
	}
	ev.Sequence = meta.Sequence.Stream
	return ev, nil
}

// Replay returns up to limit stored events for table after afterSequence.
func (f *ChangeFeed) Replay(ctx context.Context, table string, afterSequence uint64, limit int) ([]model.ChangeEvent, error) {
	js := f.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject:     fmt.Sprintf("%s.%s.>", SubjectPrefix, table),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		InactiveThreshold: time.Minute,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.ChangeEvent
	for msg := range batch.Messages() {
		ev, err := decodeMessage(msg)
		if err != nil {
			f.client.logger.Warn("skipping undecodable stored event", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	return events, nil
}
