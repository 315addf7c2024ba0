package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ErrPanelStopped is returned by commands issued after Run has returned.
var ErrPanelStopped = errors.New("chat panel stopped")

// Snapshot is the panel state handed to the listener after each change.
type Snapshot struct {
	Conversations []model.Conversation `json:"conversations"`
	ListError     string               `json:"list_error,omitempty"`
	Thread        ThreadSnapshot       `json:"thread"`
}

// ThreadSnapshot is the thread part of a Snapshot.
type ThreadSnapshot struct {
	State          string          `json:"state"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Messages       []model.Message `json:"messages"`
	Error          string          `json:"error,omitempty"`
}

// PanelConfig configures a Panel.
type PanelConfig struct {
	Backend     Backend
	Feed        realtime.Feed
	Session     *model.Session
	ThreadLimit int
	// Listener receives a snapshot after every state change. It runs on the
	// panel goroutine and must not block.
	Listener func(Snapshot)
}

type command struct {
	run    func(ctx context.Context) error
	result chan error
}

// Panel is one staff member's chat console. All state lives on the Run
// goroutine; commands and feed events are handled one at a time, so no
// two handlers interleave.
type Panel struct {
	list     *ConversationList
	thread   *Thread
	feed     realtime.Feed
	listener func(Snapshot)
	logger   *logger.Logger

	commands chan command
	done     chan struct{}
}

// NewPanel creates a panel. Call Run to start it.
func NewPanel(cfg PanelConfig, log *logger.Logger) *Panel {
	listener := cfg.Listener
	if listener == nil {
		listener = func(Snapshot) {}
	}
	return &Panel{
		list:     NewConversationList(cfg.Backend),
		thread:   NewThread(cfg.Backend, cfg.Feed, cfg.Session, cfg.ThreadLimit, log),
		feed:     cfg.Feed,
		listener: listener,
		logger:   log,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
}

// Run loads the conversation list and applies feed events until ctx is
// cancelled. A failed initial load is reported in the snapshot rather than
// stopping the panel.
func (p *Panel) Run(ctx context.Context) error {
	defer close(p.done)

	listSub, err := p.feed.Subscribe(ctx, realtime.Filter{
		Table: model.TableConversations,
	})
	if err != nil {
		return fmt.Errorf("subscribing to conversations: %w", err)
	}
	defer listSub.Close()
	defer p.thread.Close()

	if err := p.list.Refresh(ctx); err != nil {
		p.logger.Warn("conversation list load failed", zap.Error(err))
	}
	p.emit()

	for {
		var threadEvents <-chan model.ChangeEvent
		if sub := p.thread.Subscription(); sub != nil {
			threadEvents = sub.Events()
		}

		select {
		case <-ctx.Done():
			return nil

		case cmd := <-p.commands:
			err := cmd.run(ctx)
			p.emit()
			cmd.result <- err

		case ev, ok := <-listSub.Events():
			if !ok {
				return nil
			}
			p.handleListEvent(ctx, listSub, ev)
			p.emit()

		case ev, ok := <-threadEvents:
			if !ok {
				continue
			}
			p.handleThreadEvent(ctx, ev)
			p.emit()
		}
	}
}

// Select opens a conversation in the thread.
func (p *Panel) Select(ctx context.Context, conversationID string) error {
	return p.do(ctx, func(ctx context.Context) error {
		n, err := p.thread.Select(ctx, conversationID)
		if err != nil {
			return err
		}
		p.list.ApplyRead(conversationID, n)
		return nil
	})
}

// Send posts text to the open conversation. Blank text is a no-op.
func (p *Panel) Send(ctx context.Context, text string) (*model.Message, error) {
	var msg *model.Message
	err := p.do(ctx, func(ctx context.Context) error {
		var err error
		msg, err = p.thread.Send(ctx, text)
		return err
	})
	return msg, err
}

// Refresh reloads the conversation list.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.do(ctx, p.list.Refresh)
}

// CloseThread returns the thread to idle.
func (p *Panel) CloseThread(ctx context.Context) error {
	return p.do(ctx, func(context.Context) error {
		p.thread.Close()
		return nil
	})
}

func (p *Panel) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{run: fn, result: make(chan error, 1)}
	select {
	case p.commands <- cmd:
	case <-p.done:
		return ErrPanelStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// Commands run on the loop's context; once accepted the loop always
	// replies.
	return <-cmd.result
}

func (p *Panel) handleListEvent(ctx context.Context, sub *realtime.Subscription, ev model.ChangeEvent) {
	if sub.Overflowed() {
		if err := p.list.Refresh(ctx); err != nil {
			p.logger.Warn("conversation list refetch failed", zap.Error(err))
		}
		return
	}
	p.list.Apply(ev)
}

func (p *Panel) handleThreadEvent(ctx context.Context, ev model.ChangeEvent) {
	if sub := p.thread.Subscription(); sub != nil && sub.Overflowed() {
		if err := p.thread.Reload(ctx); err != nil {
			p.logger.Warn("thread refetch failed", zap.String("conversation_id", p.thread.ConversationID()), zap.Error(err))
		}
	} else if _, changed := p.thread.Apply(ev); !changed {
		return
	}

	// The thread is on screen, so new end-user messages are read on arrival.
	var msg model.Message
	if err := ev.Decode(&msg); err == nil && msg.SenderRole == model.SenderUser {
		p.list.ApplyRead(p.thread.ConversationID(), p.thread.MarkRead(ctx))
	}
}

func (p *Panel) emit() {
	snap := Snapshot{
		Conversations: p.list.Items(),
		Thread: ThreadSnapshot{
			State:          p.thread.State().String(),
			ConversationID: p.thread.ConversationID(),
			Messages:       p.thread.Messages(),
		},
	}
	if err := p.list.Err(); err != nil {
		snap.ListError = err.Error()
	}
	if err := p.thread.Err(); err != nil {
		snap.Thread.Error = err.Error()
	}
	p.listener(snap)
}
