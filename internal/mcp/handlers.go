package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/recallhq/recall/internal/query"
)

// maxLimit caps the page size a tool call may request. Larger values are
// clamped rather than rejected so a generous caller still gets results.
const maxLimit = 1000

// defaultSearchLimit applies when search_messages does not specify a limit.
// History calls fall through to the query service's own default.
const defaultSearchLimit = 50

// handlers holds the tool call handlers and their dependencies.
type handlers struct {
	service QueryService
}

// getChatHistory handles the get_chat_history tool call.
func (h *handlers) getChatHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filter, err := filterFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := h.service.ListHistory(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get chat history: %v", err)), nil
	}

	if len(page.Items) == 0 {
		return mcp.NewToolResultText("No messages found matching the given filters."), nil
	}

	return mcp.NewToolResultText(formatPage(page)), nil
}

// searchMessages handles the search_messages tool call.
func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	text, ok := args["query"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("query is required and must be a non-empty string"), nil
	}

	filter, err := filterFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if filter.Limit == nil {
		limit := defaultSearchLimit
		filter.Limit = &limit
	}

	page, err := h.service.Search(ctx, text, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(page.Items) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No messages found matching %q.", text)), nil
	}

	return mcp.NewToolResultText(formatPage(page)), nil
}

// filterFromArgs coerces the loosely-typed tool arguments shared by both
// tools into a filter specification.
func filterFromArgs(args map[string]any) (query.FilterSpec, error) {
	filter := query.FilterSpec{
		Author:  stringArg(args, "author"),
		Server:  stringArg(args, "server"),
		Channel: stringArg(args, "channel"),
		Tag:     stringArg(args, "tag"),
	}

	var err error
	if filter.HoursAgo, err = intArg(args, "hours_ago"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.MinutesAgo, err = intArg(args, "minutes_ago"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Limit, err = intArg(args, "limit"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Limit != nil && *filter.Limit > maxLimit {
		capped := maxLimit
		filter.Limit = &capped
	}
	if filter.Offset, err = intArg(args, "offset"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Since, err = dateArg(args, "since"); err != nil {
		return query.FilterSpec{}, err
	}
	if filter.Until, err = dateArg(args, "until"); err != nil {
		return query.FilterSpec{}, err
	}

	return filter, nil
}

// stringArg returns the named argument when it is a non-empty string.
func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// intArg coerces an optional numeric argument to an int. JSON numbers arrive
// as float64; fractional values are rejected rather than silently truncated.
func intArg(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%s must be a number, got %T", name, v)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%s must be a whole number, got %v", name, f)
	}
	n := int(f)
	return &n, nil
}

// dateArg parses an optional ISO 8601 datetime argument. Values without a
// zone offset are interpreted as UTC.
func dateArg(args map[string]any, name string) (*time.Time, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be an ISO datetime string, got %T", name, v)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s datetime %q: expected ISO 8601", name, s)
}

// formatPage renders a page of messages as plain text, one line per message,
// with a trailing count and pagination hint.
func formatPage(page *query.Page) string {
	var b strings.Builder
	for _, msg := range page.Items {
		b.WriteString(formatMessage(msg))
		b.WriteByte('\n')
	}

	noun := "messages"
	if len(page.Items) == 1 {
		noun = "message"
	}
	fmt.Fprintf(&b, "\n%d of %d %s", len(page.Items), page.TotalMatching, noun)
	if page.Offset > 0 {
		fmt.Fprintf(&b, " (offset %d)", page.Offset)
	}
	return b.String()
}

// formatMessage renders one message as a single line:
//
//	[2026-02-01 09:30:00] hive#general <ops-bot>: deploy done [tags: deploy] (summary: ...)
func formatMessage(msg query.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s#%s <%s>: %s",
		msg.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		orUnknown(msg.Server),
		orUnknown(msg.Channel),
		msg.Author,
		msg.Content,
	)

	if len(msg.Tags) > 0 {
		fmt.Fprintf(&b, " [tags: %s]", strings.Join(msg.Tags, ", "))
	}
	if msg.Summary != nil && *msg.Summary != "" {
		fmt.Fprintf(&b, " (summary: %s)", *msg.Summary)
	}

	return b.String()
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "?"
	}
	return *s
}
