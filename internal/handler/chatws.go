package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/chat"
	"github.com/heritage-trails/admin-api/internal/coalesce"
	"github.com/heritage-trails/admin-api/internal/middleware"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 16 << 10
)

// Commands accepted on the chat panel socket.
const (
	wsSelect  = "select"
	wsSend    = "send"
	wsRefresh = "refresh"
	wsClose   = "close"
)

type wsCommand struct {
	Type           string `json:"type"`
	RequestID      string `json:"request_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

type wsFrame struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Snapshot  *chat.Snapshot `json:"snapshot,omitempty"`
	Message   *model.Message `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ChatSocketHandler serves the live chat panel over a websocket. Each
// connection hosts one chat.Panel; state changes are pushed as snapshots
// and client commands are acknowledged by request id.
type ChatSocketHandler struct {
	chat        ChatService
	feed        realtime.Feed
	threadLimit int
	upgrader    websocket.Upgrader
	logger      *logger.Logger
}

// NewChatSocketHandler creates a new websocket handler. checkOrigin decides
// which browser origins may connect.
func NewChatSocketHandler(chat ChatService, feed realtime.Feed, threadLimit int, checkOrigin func(r *http.Request) bool, log *logger.Logger) *ChatSocketHandler {
	return &ChatSocketHandler{
		chat:        chat,
		feed:        feed,
		threadLimit: threadLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: log,
	}
}

// Serve handles GET /api/v1/chat/ws
func (h *ChatSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	log := middleware.RequestLogger(r.Context(), h.logger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.IncrementChatConnections(transportWebsocket)
	defer metrics.DecrementChatConnections(transportWebsocket)

	// The socket outlives the request context once hijacked.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	snapshots := make(chan chat.Snapshot, 1)
	frames := make(chan wsFrame, 16)

	panel := chat.NewPanel(chat.PanelConfig{
		Backend:     h.chat,
		Feed:        h.feed,
		Session:     sess,
		ThreadLimit: h.threadLimit,
		Listener:    latestSnapshot(snapshots),
	}, log)

	panelDone := make(chan struct{})
	go func() {
		defer close(panelDone)
		if err := panel.Run(ctx); err != nil {
			log.Error("chat panel stopped", zap.Error(err))
		}
		cancel()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, snapshots, frames, log)
		cancel()
		// Unblocks the reader.
		_ = conn.Close()
	}()

	h.readLoop(ctx, conn, panel, frames, log)
	cancel()
	<-panelDone
	<-writerDone
}

func (h *ChatSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, panel *chat.Panel, frames chan<- wsFrame, log *logger.Logger) {
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		frame := h.execute(ctx, panel, cmd, log)
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChatSocketHandler) execute(ctx context.Context, panel *chat.Panel, cmd wsCommand, log *logger.Logger) wsFrame {
	frame := wsFrame{Type: "ack", RequestID: cmd.RequestID}

	var err error
	switch cmd.Type {
	case wsSelect:
		err = panel.Select(ctx, cmd.ConversationID)
	case wsSend:
		frame.Message, err = panel.Send(ctx, cmd.Text)
	case wsRefresh:
		err = panel.Refresh(ctx)
	case wsClose:
		err = panel.CloseThread(ctx)
	default:
		err = errUnknownCommand
	}

	if err != nil {
		frame.Type = "error"
		frame.Error = socketError(err, log)
	}
	return frame
}

var errUnknownCommand = errors.New("unknown command")

// socketError returns the client-facing text of err. Unexpected errors are
// logged and replaced with a generic message.
func socketError(err error, log *logger.Logger) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errUnknownCommand),
		errors.Is(err, chat.ErrNoConversation),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, coalesce.ErrSuperseded):
		return err.Error()
	default:
		log.Error("chat command failed", zap.Error(err))
		return "internal server error"
	}
}

func (h *ChatSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, snapshots <-chan chat.Snapshot, frames <-chan wsFrame, log *logger.Logger) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	write := func(frame wsFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case snap := <-snapshots:
			if !write(wsFrame{Type: "snapshot", Snapshot: &snap}) {
				return
			}
		case frame := <-frames:
			if !write(frame) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// latestSnapshot returns a panel listener that keeps only the newest
// snapshot for the writer, so a slow socket never blocks the panel.
func latestSnapshot(ch chan chat.Snapshot) func(chat.Snapshot) {
	return func(s chat.Snapshot) {
		for {
			select {
			case ch <- s:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

// OriginChecker returns a websocket origin check for the configured CORS
// origins. Patterns may hold one "*" wildcard. Requests without an Origin
// header are not from a browser and are allowed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, pattern := range allowed {
			if originMatches(pattern, origin) {
				return true
			}
		}
		return false
	}
}

func originMatches(pattern, origin string) bool {
	prefix, suffix, wildcard := strings.Cut(pattern, "*")
	if !wildcard {
		return strings.EqualFold(pattern, origin)
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(strings.ToLower(origin), strings.ToLower(prefix)) &&
		strings.HasSuffix(strings.ToLower(origin), strings.ToLower(suffix))
}
