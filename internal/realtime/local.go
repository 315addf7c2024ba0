package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

// LocalFeed fans events out in process. It backs single-node deployments
// without NATS and the test suites.
type LocalFeed struct {
	bufferSize int
	seq        atomic.Uint64

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewLocalFeed creates an in-process feed.
func NewLocalFeed(bufferSize int) *LocalFeed {
	return &LocalFeed{
		bufferSize: bufferSize,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Publish delivers ev to every matching subscription.
func (f *LocalFeed) Publish(_ context.Context, ev model.ChangeEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CommitTime.IsZero() {
		ev.CommitTime = time.Now()
	}
	ev.Sequence = f.seq.Add(1)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		sub.Deliver(ev)
	}

	metrics.RealtimeEventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	return nil
}

// Subscribe opens a subscription for filter.
func (f *LocalFeed) Subscribe(_ context.Context, filter Filter) (*Subscription, error) {
	var sub *Subscription
	sub = NewSubscription(filter, f.bufferSize, func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	})

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	return sub, nil
}

// Subscribers returns the number of open subscriptions.
func (f *LocalFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
