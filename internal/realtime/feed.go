// Package realtime provides row-change subscriptions over a change feed.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heritage-trails/admin-api/internal/model"
)

// DefaultBufferSize is the per-subscription buffer used when none is configured.
const DefaultBufferSize = 256

// Feed publishes and fans out row-change events.
type Feed interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)
}

// Filter selects the events a subscription receives. An empty Types set
// matches every change type. Column/Value add an equality predicate on the
// record, e.g. conversation_id = <id>.
type Filter struct {
	Table  string
	Types  []model.ChangeType
	Column string
	Value  string
}

// Matches reports whether ev passes the filter.
func (f Filter) Matches(ev model.ChangeEvent) bool {
	if f.Table != "" && ev.Table != f.Table {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == ev.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Column == "" {
		return true
	}

	var row map[string]any
	if err := json.Unmarshal(ev.Record, &row); err != nil {
		return false
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// NewEvent builds a change event carrying row as its record.
func NewEvent(table string, typ model.ChangeType, row any) (model.ChangeEvent, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return model.ChangeEvent{}, fmt.Errorf("failed to marshal %s row: %w", table, err)
	}
	return model.ChangeEvent{
		Table:  table,
		Type:   typ,
		Record: data,
	}, nil
}
