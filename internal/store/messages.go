package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/query"
)

const messageColumns = "id, author, content, timestamp, tags, summary, server, channel"

// Insert validates the caller-supplied fields, assigns id and timestamp, and
// persists the message. The returned record is the full stored row.
func (s *Store) Insert(ctx context.Context, msg query.NewMessage) (*query.Message, error) {
	if msg.Author == "" {
		return nil, &query.ValidationError{Field: "author"}
	}
	if msg.Content == nil {
		return nil, &query.ValidationError{Field: "content"}
	}

	// Truncate to the stored precision so the returned record equals what a
	// subsequent Get would return.
	ts := s.now().UTC().Truncate(time.Microsecond)

	tags := msg.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (author, content, timestamp, tags, summary, server, channel)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.Author, *msg.Content, ts.Format(query.TimeLayout), string(tagsJSON),
		msg.Summary, msg.Server, msg.Channel,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert message id: %w", err)
	}

	return &query.Message{
		ID:        id,
		Author:    msg.Author,
		Content:   *msg.Content,
		Timestamp: ts,
		Tags:      tags,
		Summary:   msg.Summary,
		Server:    msg.Server,
		Channel:   msg.Channel,
	}, nil
}

// Get returns the message with the given id, or query.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*query.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, query.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return msg, nil
}

// Delete removes the message with the given id and reports whether a row was
// removed. Deleting a nonexistent id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete message %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete message %d: %w", id, err)
	}
	return n > 0, nil
}

// Scan applies the compiled filter at the storage layer and returns one page
// of matches ordered by timestamp descending (id descending as tiebreak),
// plus the total match count ignoring the page window. Count and page are
// read in a single transaction so one call sees a consistent snapshot.
func (s *Store) Scan(ctx context.Context, spec query.ScanSpec) ([]query.Message, int64, error) {
	where := "1=1"
	if len(spec.Conditions) > 0 {
		where = strings.Join(spec.Conditions, " AND ")
	}

	msgs := []query.Message{}
	var total int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM messages WHERE "+where, spec.Args...,
		).Scan(&total); err != nil {
			return fmt.Errorf("count matches: %w", err)
		}

		args := append(append([]any{}, spec.Args...), spec.Limit, spec.Offset)
		rows, err := tx.QueryContext(ctx,
			"SELECT "+messageColumns+" FROM messages WHERE "+where+
				" ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?", args...)
		if err != nil {
			return fmt.Errorf("scan messages: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			msg, err := scanMessage(rows)
			if err != nil {
				return fmt.Errorf("scan message row: %w", err)
			}
			msgs = append(msgs, *msg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return msgs, total, nil
}

// Stats returns archive-wide statistics.
func (s *Store) Stats(ctx context.Context) (*query.Stats, error) {
	stats := &query.Stats{}

	var earliest, latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT author), MIN(timestamp), MAX(timestamp)
		FROM messages`,
	).Scan(&stats.TotalCount, &stats.DistinctAuthors, &earliest, &latest)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	if earliest.Valid {
		t, err := parseTimestamp(earliest.String)
		if err != nil {
			return nil, fmt.Errorf("get stats: %w", err)
		}
		stats.EarliestTimestamp = &t
	}
	if latest.Valid {
		t, err := parseTimestamp(latest.String)
		if err != nil {
			return nil, fmt.Errorf("get stats: %w", err)
		}
		stats.LatestTimestamp = &t
	}

	return stats, nil
}

// DeleteBefore removes all messages archived before the cutoff and returns
// the number of rows removed. Used by the retention sweeper.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE timestamp < ?",
		cutoff.UTC().Format(query.TimeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*query.Message, error) {
	var m query.Message
	var ts, tagsJSON string
	var summary, server, channel sql.NullString

	if err := row.Scan(&m.ID, &m.Author, &m.Content, &ts, &tagsJSON, &summary, &server, &channel); err != nil {
		return nil, err
	}

	t, err := parseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	m.Timestamp = t

	if err := json.Unmarshal([]byte(tagsJSON), &m.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	if summary.Valid {
		m.Summary = &summary.String
	}
	if server.Valid {
		m.Server = &server.String
	}
	if channel.Valid {
		m.Channel = &channel.String
	}

	return &m, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.ParseInLocation(query.TimeLayout, ts, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return t, nil
}
