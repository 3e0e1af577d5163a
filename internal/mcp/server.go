// Package mcp exposes the recall query service as named callable tools over
// the Model Context Protocol. It is a thin translation layer: loosely-typed
// tool arguments are coerced into the query service's strict filter
// specification, and every failure degrades to a descriptive text result
// because the tool-call protocol has no structured error channel.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/recallhq/recall/internal/query"
)

// Tool name constants.
const (
	ToolGetChatHistory = "get_chat_history"
	ToolSearchMessages = "search_messages"
)

// QueryService defines the query operations the tool adapter needs.
type QueryService interface {
	ListHistory(ctx context.Context, filter query.FilterSpec) (*query.Page, error)
	Search(ctx context.Context, text string, filter query.FilterSpec) (*query.Page, error)
}

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum messages to return (default "+defaultDesc+", max 1000)"),
	)
}

func withOffset() mcp.ToolOption {
	return mcp.WithNumber("offset",
		mcp.Description("Number of messages to skip for pagination (default 0)"),
	)
}

func withTimeFilters() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("hours_ago",
			mcp.Description("Limit to messages from the last N hours"),
		),
		mcp.WithNumber("minutes_ago",
			mcp.Description("Limit to messages from the last N minutes"),
		),
		mcp.WithString("since",
			mcp.Description("ISO datetime lower bound (e.g. '2026-02-01T00:00:00')"),
		),
		mcp.WithString("until",
			mcp.Description("ISO datetime upper bound"),
		),
	}
}

func withOriginFilters() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("author",
			mcp.Description("Filter by author (exact match)"),
		),
		mcp.WithString("server",
			mcp.Description("Filter by server name"),
		),
		mcp.WithString("channel",
			mcp.Description("Filter by channel name"),
		),
	}
}

// Serve creates an MCP server with the chat archive tools and serves over
// stdio. It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, service QueryService) error {
	s := server.NewMCPServer(
		"recall",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{service: service}

	s.AddTool(getChatHistoryTool(), h.getChatHistory)
	s.AddTool(searchMessagesTool(), h.searchMessages)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func getChatHistoryTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Retrieve past messages from the chat archive, newest first. " +
			"Use this to recall what was discussed before, or to check what someone said recently. " +
			"Filter by author, server, channel, tag, or time window."),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	opts = append(opts, withOriginFilters()...)
	opts = append(opts,
		mcp.WithString("tag",
			mcp.Description("Filter by tag (message matches if the tag appears in its tag list)"),
		),
	)
	opts = append(opts, withTimeFilters()...)
	opts = append(opts, withLimit("100"), withOffset())

	return mcp.NewTool(ToolGetChatHistory, opts...)
}

func searchMessagesTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search past messages for specific text or topics. " +
			"Matches a case-insensitive substring of message content or summary. " +
			"Use this to find messages about a keyword or to remember what someone said about something."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for (case-insensitive substring)"),
		),
	}
	opts = append(opts, withOriginFilters()...)
	opts = append(opts,
		mcp.WithString("tag",
			mcp.Description("Limit to messages carrying this tag"),
		),
	)
	opts = append(opts, withTimeFilters()...)
	opts = append(opts, withLimit("50"), withOffset())

	return mcp.NewTool(ToolSearchMessages, opts...)
}
