package query

import (
	"context"
	"strings"
	"time"
)

// MessageStore is the storage contract the query service depends on. It is
// implemented by store.Store; tests may substitute any other implementation.
type MessageStore interface {
	Insert(ctx context.Context, msg NewMessage) (*Message, error)
	Get(ctx context.Context, id int64) (*Message, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Scan(ctx context.Context, spec ScanSpec) ([]Message, int64, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Service is the query facade shared by the HTTP API and the MCP tool
// adapter. Both operations are read-only and safe to repeat.
type Service struct {
	store MessageStore
	now   func() time.Time
}

// NewService creates a query service over the given store.
func NewService(store MessageStore) *Service {
	return &Service{store: store, now: time.Now}
}

// ListHistory compiles the filter and returns one page of matching messages,
// newest first.
func (s *Service) ListHistory(ctx context.Context, filter FilterSpec) (*Page, error) {
	spec, err := filter.Compile(s.now())
	if err != nil {
		return nil, err
	}
	return s.scanPage(ctx, spec)
}

// Search returns one page of messages whose content or summary contains
// text as a case-insensitive substring, ANDed with any other supplied
// filters. Text must be non-empty after trimming whitespace.
func (s *Service) Search(ctx context.Context, text string, filter FilterSpec) (*Page, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &InvalidFilterError{Reason: "search text must not be empty"}
	}

	spec, err := filter.Compile(s.now())
	if err != nil {
		return nil, err
	}
	spec.where(textCondition, text, text)

	return s.scanPage(ctx, spec)
}

func (s *Service) scanPage(ctx context.Context, spec ScanSpec) (*Page, error) {
	items, total, err := s.store.Scan(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:         items,
		TotalMatching: total,
		Limit:         spec.Limit,
		Offset:        spec.Offset,
	}, nil
}
