package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeStore records the ScanSpec it receives and returns canned results.
type fakeStore struct {
	MessageStore

	lastSpec ScanSpec
	items    []Message
	total    int64
	err      error
}

func (f *fakeStore) Scan(ctx context.Context, spec ScanSpec) ([]Message, int64, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.items, f.total, nil
}

func newTestService(store *fakeStore) *Service {
	s := NewService(store)
	s.now = func() time.Time { return compileNow }
	return s
}

func TestService_ListHistory(t *testing.T) {
	store := &fakeStore{
		items: []Message{{ID: 2, Author: "bob"}, {ID: 1, Author: "alice"}},
		total: 7,
	}
	s := newTestService(store)

	page, err := s.ListHistory(context.Background(), FilterSpec{Author: "bob", Limit: intPtr(2)})
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}

	if page.TotalMatching != 7 {
		t.Errorf("TotalMatching = %d, want 7", page.TotalMatching)
	}
	if page.Limit != 2 || page.Offset != 0 {
		t.Errorf("page window = (%d, %d), want (2, 0)", page.Limit, page.Offset)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}

	if diff := cmp.Diff([]string{"author = ?"}, store.lastSpec.Conditions); diff != "" {
		t.Errorf("compiled conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ListHistory_InvalidFilter(t *testing.T) {
	s := newTestService(&fakeStore{})

	_, err := s.ListHistory(context.Background(), FilterSpec{Limit: intPtr(-1)})
	var invalid *InvalidFilterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidFilterError, got %v", err)
	}
}

func TestService_Search_AppendsTextCondition(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	if _, err := s.Search(context.Background(), "Deploy", FilterSpec{Server: "hive"}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantConds := []string{"server = ?", textCondition}
	if diff := cmp.Diff(wantConds, store.lastSpec.Conditions); diff != "" {
		t.Errorf("conditions mismatch (-want +got):\n%s", diff)
	}
	// The text binds twice: once for content, once for summary.
	wantArgs := []any{"hive", "Deploy", "Deploy"}
	if diff := cmp.Diff(wantArgs, store.lastSpec.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Search_TrimsText(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	if _, err := s.Search(context.Background(), "  redis  ", FilterSpec{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := store.lastSpec.Args[0]; got != "redis" {
		t.Errorf("bound text = %v, want trimmed \"redis\"", got)
	}
}

func TestService_Search_EmptyText(t *testing.T) {
	s := newTestService(&fakeStore{})

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := s.Search(context.Background(), text, FilterSpec{})
		var invalid *InvalidFilterError
		if !errors.As(err, &invalid) {
			t.Errorf("Search(%q): expected InvalidFilterError, got %v", text, err)
		}
	}
}

func TestService_StoreErrorPropagates(t *testing.T) {
	wantErr := errors.New("disk gone")
	s := newTestService(&fakeStore{err: wantErr})

	if _, err := s.ListHistory(context.Background(), FilterSpec{}); !errors.Is(err, wantErr) {
		t.Errorf("ListHistory error = %v, want %v", err, wantErr)
	}
}
