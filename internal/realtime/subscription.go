package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

// Subscription is a bounded stream of change events. When the buffer is
// full the oldest buffered event is dropped and the overflow flag is set;
// the consumer is expected to refetch when it sees the flag.
type Subscription struct {
	filter  Filter
	events  chan model.ChangeEvent
	onClose func()

	mu         sync.Mutex
	closed     bool
	overflowed atomic.Bool
	dropped    atomic.Uint64
}

// NewSubscription creates a subscription with the given buffer size.
// onClose runs once when the subscription is closed.
func NewSubscription(filter Filter, size int, onClose func()) *Subscription {
	if size <= 0 {
		size = DefaultBufferSize
	}
	metrics.RealtimeSubscriptionsActive.Inc()
	return &Subscription{
		filter:  filter,
		events:  make(chan model.ChangeEvent, size),
		onClose: onClose,
	}
}

// Filter returns the subscription filter.
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Events returns the event channel. It is closed by Close.
func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.events
}

// Deliver offers ev to the subscriber if it matches the filter. It never
// blocks.
func (s *Subscription) Deliver(ev model.ChangeEvent) {
	if !s.filter.Matches(ev) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for {
		select {
		case s.events <- ev:
			return
		default:
		}

		// Buffer full: drop the oldest event to make room.
		select {
		case <-s.events:
			s.overflowed.Store(true)
			s.dropped.Add(1)
			metrics.RealtimeEventsDropped.WithLabelValues(ev.Table).Inc()
		default:
		}
	}
}

// Overflowed reports whether events were dropped since the last call, and
// clears the flag.
func (s *Subscription) Overflowed() bool {
	return s.overflowed.Swap(false)
}

// Dropped returns the total number of dropped events.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	metrics.RealtimeSubscriptionsActive.Dec()
	if s.onClose != nil {
		s.onClose()
	}
}
