// Package query provides the filter compilation and query service layer for
// the recall message archive. It defines the message model shared with the
// storage layer, compiles caller-supplied filter specifications into
// storage-level scan conditions, and exposes the list/search facade used by
// both the HTTP API and the MCP tool adapter.
package query

import "time"

// TimeLayout is the fixed-width UTC layout used for timestamps in the
// messages table. Lexicographic order matches chronological order, so the
// store can apply range conditions and ORDER BY directly on the text column.
const TimeLayout = "2006-01-02 15:04:05.000000"

// Message is a stored chat message. ID and Timestamp are assigned by the
// store on insert and are immutable; Timestamp records when the message was
// archived, not an externally asserted event time.
type Message struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags"`
	Summary   *string   `json:"summary,omitempty"`
	Server    *string   `json:"server,omitempty"`
	Channel   *string   `json:"channel,omitempty"`
}

// NewMessage holds the caller-supplied fields for an insert. Content is a
// pointer so that "present but empty" and "absent" are distinguishable: an
// empty string is a valid message body, a nil pointer is not.
type NewMessage struct {
	Author  string
	Content *string
	Tags    []string
	Summary *string
	Server  *string
	Channel *string
}

// Page is one page of query results plus enough metadata for the caller to
// page further. TotalMatching is the full match count ignoring the page
// window; it is recomputed per call, so page boundaries can shift between
// calls when rows are inserted or deleted in the meantime.
type Page struct {
	Items         []Message `json:"items"`
	TotalMatching int64     `json:"total_matching"`
	Limit         int       `json:"limit"`
	Offset        int       `json:"offset"`
}

// Stats summarizes the archive contents. The timestamp fields are nil when
// the archive is empty.
type Stats struct {
	TotalCount        int64      `json:"total_count"`
	DistinctAuthors   int64      `json:"distinct_authors"`
	EarliestTimestamp *time.Time `json:"earliest_timestamp,omitempty"`
	LatestTimestamp   *time.Time `json:"latest_timestamp,omitempty"`
}
