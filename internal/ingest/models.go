package ingest

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidRange   = errors.New("ingest: invalid date range")
	ErrSyncInProgress = errors.New("ingest: another sync is in progress")
	ErrUnknownPayload = errors.New("ingest: unrecognized webhook payload")
)

const dateLayout = "2006-01-02"

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses YYYY-MM-DD bounds. maxDays caps End-Start; zero disables the cap.
func ParseRange(start, end string, maxDays int) (Range, error) {
	s, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return Range{}, ErrInvalidRange
	}
	e, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return Range{}, ErrInvalidRange
	}
	r := Range{Start: s, End: e}
	if err := r.Validate(maxDays); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate(maxDays int) error {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	if maxDays > 0 && r.End.Sub(r.Start) > time.Duration(maxDays)*24*time.Hour {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) StartDate() string { return r.Start.Format(dateLayout) }
func (r Range) EndDate() string   { return r.End.Format(dateLayout) }

// TrailingWindow covers now-window through now by calendar day, so a window
// that crosses midnight spans two days.
func TrailingWindow(now time.Time, window time.Duration) Range {
	day := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	return Range{Start: day(now.Add(-window)), End: day(now)}
}

// Result summarizes one ingestion pass. Errors is omitted when empty.
type Result struct {
	Success bool          `json:"success"`
	Synced  int           `json:"synced"`
	Skipped int           `json:"skipped"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// RecordError captures a per-record mapping or persistence failure.
type RecordError struct {
	ExternalID string `json:"external_id"`
	Error      string `json:"error"`
}

// Actor identifies who started an ingestion pass, for the audit trail.
type Actor struct {
	Origin string
	UserID string
	Role   string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func actorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.Origin != "" {
		return a
	}
	return Actor{Origin: "system"}
}
