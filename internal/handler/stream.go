package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/middleware"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

const (
	replayBatchSize    = 100
	defaultHeartbeat   = 30 * time.Second
	transportSSE       = "sse"
	transportWebsocket = "websocket"
)

// Replayer backfills stored change events. The NATS change feed implements
// it; the in-process feed does not.
type Replayer interface {
	Replay(ctx context.Context, table string, afterSequence uint64, limit int) ([]model.ChangeEvent, error)
}

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	chat      ChatService
	feed      realtime.Feed
	replayer  Replayer
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler. replayer may be nil.
func NewStreamHandler(chat ChatService, feed realtime.Feed, replayer Replayer, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		chat:      chat,
		feed:      feed,
		replayer:  replayer,
		heartbeat: defaultHeartbeat,
		logger:    log,
	}
}

// ReplayCompleteEvent represents the completion of event replay.
type ReplayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	EventCount   int    `json:"event_count"`
}

// HeartbeatEvent keeps idle streams open through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Stream handles GET /api/v1/conversations/{id}/stream
// Supports ?after_sequence=N or Last-Event-ID for resuming after a reconnect.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")
	log := middleware.RequestLogger(ctx, h.logger).With(zap.String("conversation_id", conversationID))

	if _, err := h.chat.GetConversation(ctx, conversationID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before replaying so nothing committed in between is lost.
	messageFilter := realtime.Filter{Table: model.TableMessages, Column: "conversation_id", Value: conversationID}
	messages, err := h.feed.Subscribe(ctx, messageFilter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer messages.Close()

	conversation, err := h.feed.Subscribe(ctx, realtime.Filter{Table: model.TableConversations, Column: "id", Value: conversationID})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer conversation.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementChatConnections(transportSSE)
	defer metrics.DecrementChatConnections(transportSSE)

	_ = sendSSEEvent(w, flusher, "connected", map[string]string{
		"conversation_id": conversationID,
	})

	// Live message events up to this sequence were already sent by the replay.
	var replayedThrough uint64
	if after := afterSequence(r); after > 0 && h.replayer != nil {
		last, count := h.replay(ctx, w, flusher, messageFilter, after, log)
		replayedThrough = last
		_ = sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
			LastSequence: last,
			EventCount:   count,
		})
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		var (
			ev  model.ChangeEvent
			sub *realtime.Subscription
			ok  bool
		)

		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected")
			return
		case <-heartbeat.C:
			_ = sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{Timestamp: time.Now()})
			continue
		case ev, ok = <-messages.Events():
			sub = messages
		case ev, ok = <-conversation.Events():
			sub = conversation
		}

		if !ok {
			return
		}
		if sub == messages && ev.Sequence > 0 && ev.Sequence <= replayedThrough {
			continue
		}
		if sub.Overflowed() {
			// Events were dropped; the client must refetch the thread.
			_ = sendSSEEvent(w, flusher, "resync", map[string]string{"table": ev.Table})
		}
		if err := sendChangeEvent(w, flusher, ev); err != nil {
			log.Warn("SSE write failed", zap.Error(err))
			return
		}
	}
}

func (h *StreamHandler) replay(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, filter realtime.Filter, after uint64, log *logger.Logger) (uint64, int) {
	last, count := after, 0
	for {
		events, err := h.replayer.Replay(ctx, model.TableMessages, last, replayBatchSize)
		if err != nil {
			log.Warn("event replay failed", zap.Uint64("after_sequence", last), zap.Error(err))
			_ = sendSSEEvent(w, flusher, "resync", map[string]string{"table": model.TableMessages})
			return last, count
		}

		for _, ev := range events {
			if ev.Sequence > last {
				last = ev.Sequence
			}
			if !filter.Matches(ev) {
				continue
			}
			if err := sendChangeEvent(w, flusher, ev); err != nil {
				return last, count
			}
			count++
		}

		if len(events) < replayBatchSize {
			return last, count
		}
	}
}

func afterSequence(r *http.Request) uint64 {
	value := r.URL.Query().Get("after_sequence")
	if value == "" {
		value = r.Header.Get("Last-Event-ID")
	}
	seq, _ := strconv.ParseUint(value, 10, 64)
	return seq
}

// sendChangeEvent writes ev with its feed sequence as the SSE id so the
// browser reports it back in Last-Event-ID.
func sendChangeEvent(w http.ResponseWriter, flusher http.Flusher, ev model.ChangeEvent) error {
	if ev.Sequence > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.Sequence); err != nil {
			return err
		}
	}
	return sendSSEEvent(w, flusher, "change", ev)
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
