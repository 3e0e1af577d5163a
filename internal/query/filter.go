package query

import (
	"fmt"
	"time"
)

// DefaultLimit is the page size applied when a filter supplies none.
const DefaultLimit = 100

// FilterSpec is the optional-field filter specification accepted by the
// query service. Zero-valued fields mean "no filter"; all supplied fields
// are combined with logical AND.
type FilterSpec struct {
	Author  string // exact, case-sensitive author match
	Server  string // exact server match
	Channel string // exact channel match
	Tag     string // matches if the tag appears anywhere in the tags sequence

	HoursAgo   *int // lower time bound: now - N hours
	MinutesAgo *int // lower time bound: now - N minutes
	Since      *time.Time
	Until      *time.Time

	Limit  *int // page size, default DefaultLimit
	Offset *int // rows to skip, default 0
}

// ScanSpec is the compiled form of a FilterSpec: storage-level WHERE
// conditions (combined with AND, args bound in order) plus a page window.
// The store evaluates it without loading unrelated rows into memory.
type ScanSpec struct {
	Conditions []string
	Args       []any
	Limit      int
	Offset     int
}

// where appends one condition and its bind args.
func (s *ScanSpec) where(cond string, args ...any) {
	s.Conditions = append(s.Conditions, cond)
	s.Args = append(s.Args, args...)
}

// tagCondition matches messages whose tags sequence contains the given tag.
// Tags are stored as a JSON array, so element equality goes through
// json_each rather than substring matching on the serialized form.
const tagCondition = `EXISTS (SELECT 1 FROM json_each(messages.tags) WHERE json_each.value = ?)`

// textCondition matches a case-insensitive substring of content or, when
// present, summary. instr avoids LIKE wildcard escaping for caller text.
const textCondition = `(instr(lower(content), lower(?)) > 0
	OR (summary IS NOT NULL AND instr(lower(summary), lower(?)) > 0))`

// Compile validates the filter and translates it into storage-level
// equality and range conditions. now is the reference point for the
// relative time bounds. The receiver is never mutated.
//
// When several lower time bounds are supplied (hours_ago, minutes_ago,
// since), the most restrictive (latest) bound applies.
func (f FilterSpec) Compile(now time.Time) (ScanSpec, error) {
	spec := ScanSpec{Limit: DefaultLimit}

	if f.Limit != nil {
		if *f.Limit <= 0 {
			return ScanSpec{}, &InvalidFilterError{Reason: fmt.Sprintf("limit must be positive, got %d", *f.Limit)}
		}
		spec.Limit = *f.Limit
	}
	if f.Offset != nil {
		if *f.Offset < 0 {
			return ScanSpec{}, &InvalidFilterError{Reason: fmt.Sprintf("offset must not be negative, got %d", *f.Offset)}
		}
		spec.Offset = *f.Offset
	}
	if f.HoursAgo != nil && *f.HoursAgo < 0 {
		return ScanSpec{}, &InvalidFilterError{Reason: fmt.Sprintf("hours_ago must not be negative, got %d", *f.HoursAgo)}
	}
	if f.MinutesAgo != nil && *f.MinutesAgo < 0 {
		return ScanSpec{}, &InvalidFilterError{Reason: fmt.Sprintf("minutes_ago must not be negative, got %d", *f.MinutesAgo)}
	}
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return ScanSpec{}, &InvalidFilterError{Reason: fmt.Sprintf(
			"since (%s) is after until (%s)",
			f.Since.Format(time.RFC3339), f.Until.Format(time.RFC3339))}
	}

	if f.Author != "" {
		spec.where("author = ?", f.Author)
	}
	if f.Server != "" {
		spec.where("server = ?", f.Server)
	}
	if f.Channel != "" {
		spec.where("channel = ?", f.Channel)
	}
	if f.Tag != "" {
		spec.where(tagCondition, f.Tag)
	}

	if lower := f.lowerBound(now); lower != nil {
		spec.where("timestamp >= ?", lower.UTC().Format(TimeLayout))
	}
	if f.Until != nil {
		spec.where("timestamp <= ?", f.Until.UTC().Format(TimeLayout))
	}

	return spec, nil
}

// lowerBound resolves the relative (hours_ago / minutes_ago) and absolute
// (since) lower bounds to a single one: the tightest bound wins.
func (f FilterSpec) lowerBound(now time.Time) *time.Time {
	var lower *time.Time

	tighten := func(t time.Time) {
		if lower == nil || t.After(*lower) {
			lower = &t
		}
	}

	if f.HoursAgo != nil {
		tighten(now.Add(-time.Duration(*f.HoursAgo) * time.Hour))
	}
	if f.MinutesAgo != nil {
		tighten(now.Add(-time.Duration(*f.MinutesAgo) * time.Minute))
	}
	if f.Since != nil {
		tighten(*f.Since)
	}

	return lower
}
