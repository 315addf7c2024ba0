package model

// Page is an offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit is used when a caller does not ask for a limit.
const DefaultPageLimit = 20

// MaxPageLimit caps any requested limit.
const MaxPageLimit = 100

// Normalize clamps the page into the supported window.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResponse is a page of rows plus the total matching count.
type ListResponse[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// NewListResponse builds a ListResponse for the given page.
func NewListResponse[T any](items []T, total int, page Page) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{
		Items:   items,
		Total:   total,
		HasMore: page.Offset+len(items) < total,
	}
}
