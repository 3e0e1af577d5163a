package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recallhq/recall/internal/query"
)

// fakeService records the filter it receives and returns a canned page.
type fakeService struct {
	lastText   string
	lastFilter query.FilterSpec
	page       *query.Page
	err        error
}

func (f *fakeService) ListHistory(ctx context.Context, filter query.FilterSpec) (*query.Page, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeService) Search(ctx context.Context, text string, filter query.FilterSpec) (*query.Page, error) {
	f.lastText = text
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func emptyPage() *query.Page {
	return &query.Page{Items: []query.Message{}, Limit: 100}
}

func samplePage() *query.Page {
	summary := "release approval"
	server := "hive"
	channel := "ops"
	return &query.Page{
		Items: []query.Message{
			{
				ID:        3,
				Author:    "alice",
				Content:   "ship it",
				Timestamp: time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC),
				Tags:      []string{"deploy", "prod"},
				Summary:   &summary,
				Server:    &server,
				Channel:   &channel,
			},
			{
				ID:        1,
				Author:    "bob",
				Content:   "standup at nine",
				Timestamp: time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC),
				Tags:      []string{},
			},
		},
		TotalMatching: 5,
		Limit:         2,
		Offset:        2,
	}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestGetChatHistory_Formatting(t *testing.T) {
	h := &handlers{service: &fakeService{page: samplePage()}}

	res, err := h.getChatHistory(context.Background(), callRequest(ToolGetChatHistory, nil))
	if err != nil {
		t.Fatalf("getChatHistory: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	got := resultText(t, res)
	wantLines := []string{
		"[2026-02-10 11:00:00] hive#ops <alice>: ship it [tags: deploy, prod] (summary: release approval)",
		"[2026-02-08 09:00:00] ?#? <bob>: standup at nine",
		"2 of 5 messages (offset 2)",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line) {
			t.Errorf("output missing %q\ngot:\n%s", line, got)
		}
	}
}

func TestGetChatHistory_ArgumentCoercion(t *testing.T) {
	svc := &fakeService{page: emptyPage()}
	h := &handlers{service: svc}

	args := map[string]any{
		"author":    "alice",
		"server":    "hive",
		"channel":   "ops",
		"tag":       "deploy",
		"hours_ago": float64(3),
		"limit":     float64(10),
		"offset":    float64(5),
		"since":     "2026-02-01T00:00:00",
	}
	if _, err := h.getChatHistory(context.Background(), callRequest(ToolGetChatHistory, args)); err != nil {
		t.Fatalf("getChatHistory: %v", err)
	}

	f := svc.lastFilter
	if f.Author != "alice" || f.Server != "hive" || f.Channel != "ops" || f.Tag != "deploy" {
		t.Errorf("string filters = %+v", f)
	}
	if f.HoursAgo == nil || *f.HoursAgo != 3 {
		t.Errorf("HoursAgo = %v, want 3", f.HoursAgo)
	}
	if f.Limit == nil || *f.Limit != 10 {
		t.Errorf("Limit = %v, want 10", f.Limit)
	}
	if f.Offset == nil || *f.Offset != 5 {
		t.Errorf("Offset = %v, want 5", f.Offset)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if f.Since == nil || !f.Since.Equal(want) {
		t.Errorf("Since = %v, want %v", f.Since, want)
	}
}

func TestGetChatHistory_BadArguments(t *testing.T) {
	h := &handlers{service: &fakeService{page: emptyPage()}}

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"fractional limit", map[string]any{"limit": 2.5}, "whole number"},
		{"non-numeric hours_ago", map[string]any{"hours_ago": "three"}, "must be a number"},
		{"bad since", map[string]any{"since": "last tuesday"}, "expected ISO 8601"},
		{"non-string until", map[string]any{"until": float64(5)}, "must be an ISO datetime string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getChatHistory(context.Background(), callRequest(ToolGetChatHistory, tt.args))
			if err != nil {
				t.Fatalf("getChatHistory: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected an error result")
			}
			if got := resultText(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("error %q does not contain %q", got, tt.want)
			}
		})
	}
}

func TestGetChatHistory_ClampsLimit(t *testing.T) {
	svc := &fakeService{page: emptyPage()}
	h := &handlers{service: svc}

	args := map[string]any{"limit": float64(5000)}
	if _, err := h.getChatHistory(context.Background(), callRequest(ToolGetChatHistory, args)); err != nil {
		t.Fatalf("getChatHistory: %v", err)
	}
	if svc.lastFilter.Limit == nil || *svc.lastFilter.Limit != maxLimit {
		t.Errorf("Limit = %v, want clamped to %d", svc.lastFilter.Limit, maxLimit)
	}
}

func TestGetChatHistory_Empty(t *testing.T) {
	h := &handlers{service: &fakeService{page: emptyPage()}}

	res, err := h.getChatHistory(context.Background(), callRequest(ToolGetChatHistory, nil))
	if err != nil {
		t.Fatalf("getChatHistory: %v", err)
	}
	if got := resultText(t, res); !strings.Contains(got, "No messages found") {
		t.Errorf("empty result text = %q", got)
	}
}

func TestSearchMessages(t *testing.T) {
	svc := &fakeService{page: samplePage()}
	h := &handlers{service: svc}

	args := map[string]any{"query": "deploy", "server": "hive"}
	res, err := h.searchMessages(context.Background(), callRequest(ToolSearchMessages, args))
	if err != nil {
		t.Fatalf("searchMessages: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	if svc.lastText != "deploy" {
		t.Errorf("search text = %q, want deploy", svc.lastText)
	}
	if svc.lastFilter.Server != "hive" {
		t.Errorf("Server = %q, want hive", svc.lastFilter.Server)
	}
	if svc.lastFilter.Limit == nil || *svc.lastFilter.Limit != defaultSearchLimit {
		t.Errorf("Limit = %v, want search default %d", svc.lastFilter.Limit, defaultSearchLimit)
	}
}

func TestSearchMessages_ExplicitLimitKept(t *testing.T) {
	svc := &fakeService{page: emptyPage()}
	h := &handlers{service: svc}

	args := map[string]any{"query": "deploy", "limit": float64(7)}
	if _, err := h.searchMessages(context.Background(), callRequest(ToolSearchMessages, args)); err != nil {
		t.Fatalf("searchMessages: %v", err)
	}
	if svc.lastFilter.Limit == nil || *svc.lastFilter.Limit != 7 {
		t.Errorf("Limit = %v, want 7", svc.lastFilter.Limit)
	}
}

func TestSearchMessages_MissingQuery(t *testing.T) {
	h := &handlers{service: &fakeService{page: emptyPage()}}

	for _, args := range []map[string]any{
		nil,
		{"query": ""},
		{"query": "   "},
		{"query": float64(3)},
	} {
		res, err := h.searchMessages(context.Background(), callRequest(ToolSearchMessages, args))
		if err != nil {
			t.Fatalf("searchMessages: %v", err)
		}
		if !res.IsError {
			t.Errorf("args %v: expected an error result", args)
		}
	}
}

func TestSearchMessages_NoHits(t *testing.T) {
	h := &handlers{service: &fakeService{page: emptyPage()}}

	args := map[string]any{"query": "kubernetes"}
	res, err := h.searchMessages(context.Background(), callRequest(ToolSearchMessages, args))
	if err != nil {
		t.Fatalf("searchMessages: %v", err)
	}
	if got := resultText(t, res); !strings.Contains(got, `No messages found matching "kubernetes"`) {
		t.Errorf("no-hit text = %q", got)
	}
}

func TestFormatPage_SingularNoun(t *testing.T) {
	page := &query.Page{
		Items: []query.Message{{
			Author:    "alice",
			Content:   "hi",
			Timestamp: time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC),
		}},
		TotalMatching: 1,
	}
	if got := formatPage(page); !strings.Contains(got, "1 of 1 message") || strings.Contains(got, "messages") {
		t.Errorf("formatPage = %q, want singular count", got)
	}
}
