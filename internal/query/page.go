package query

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps the row offset of any window within an int.
	MaxPage = math.MaxInt/MaxLimit + 1
)

// Window selects one page of a listing.
type Window struct {
	Page  int
	Limit int
}

// NewWindow coerces raw page/limit query values into a valid window.
func NewWindow(page, limit string) Window {
	return Window{Page: positiveInt(page, DefaultPage), Limit: positiveInt(limit, DefaultLimit)}.normalized()
}

func (w Window) normalized() Window {
	if w.Page < 1 {
		w.Page = DefaultPage
	}
	if w.Page > MaxPage {
		w.Page = MaxPage
	}
	if w.Limit < 1 {
		w.Limit = DefaultLimit
	}
	if w.Limit > MaxLimit {
		w.Limit = MaxLimit
	}
	return w
}

// Offset is the number of rows skipped before the window.
func (w Window) Offset() int {
	w = w.normalized()
	return (w.Page - 1) * w.Limit
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Sort orders a listing by an API field.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads sortBy/sortType query values. Anything but "asc" sorts descending.
func ParseSort(sortBy, sortType string) Sort {
	return Sort{
		Field: strings.TrimSpace(sortBy),
		Desc:  !strings.EqualFold(strings.TrimSpace(sortType), "asc"),
	}
}

// Labels renames the item array and total count in the JSON output.
type Labels struct {
	Items string
	Total string
}

var defaultLabels = Labels{Items: "items", Total: "totalItems"}

// Page is one window of a listing with its bookkeeping.
type Page[T any] struct {
	Items       []T
	TotalItems  int64
	TotalPages  int
	CurrentPage int
	Limit       int
	HasNextPage bool
	HasPrevPage bool

	labels Labels
}

// Paginate wraps a window of items with totals computed from the full count.
func Paginate[T any](items []T, total int64, window Window) Page[T] {
	window = window.normalized()
	if items == nil {
		items = []T{}
	}
	if len(items) > window.Limit {
		items = items[:window.Limit]
	}
	if total < 0 {
		total = 0
	}

	totalPages := int((total + int64(window.Limit) - 1) / int64(window.Limit))

	return Page[T]{
		Items:       items,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: window.Page,
		Limit:       window.Limit,
		HasNextPage: window.Page < totalPages,
		HasPrevPage: window.Page > 1,
		labels:      defaultLabels,
	}
}

// WithLabels returns a copy of the page that marshals with the given field names.
func (p Page[T]) WithLabels(items, total string) Page[T] {
	p.labels = Labels{Items: items, Total: total}
	return p
}

// Labels returns the field names used when marshalling.
func (p Page[T]) Labels() Labels {
	if p.labels.Items == "" {
		return defaultLabels
	}
	return p.labels
}

// MarshalJSON renders the page with its resource-specific labels.
func (p Page[T]) MarshalJSON() ([]byte, error) {
	labels := p.Labels()
	items := p.Items
	if items == nil {
		items = []T{}
	}

	out := map[string]any{
		labels.Items: items,
		labels.Total: p.TotalItems,
		"totalPages":  p.TotalPages,
		"currentPage": p.CurrentPage,
		"limit":       p.Limit,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
		"nextPage":    nil,
		"prevPage":    nil,
	}
	if p.HasNextPage {
		out["nextPage"] = p.CurrentPage + 1
	}
	if p.HasPrevPage {
		out["prevPage"] = p.CurrentPage - 1
	}
	return json.Marshal(out)
}
