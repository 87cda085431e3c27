package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// There are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records ingestion runs.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to agents.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Type.Valid() {
		return ErrInvalidEvent
	}
	if e.Origin == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Run describes one finished ingestion pass.
type Run struct {
	Origin      string
	ActorUserID string
	ActorRole   string
	RangeStart  string
	RangeEnd    string
	Extension   string
	Synced      int
	Skipped     int
	Failed      int
	Err         error
	Metadata    string
}

// LogSync records a date-range sync pass.
func (s *Service) LogSync(ctx context.Context, r Run) error {
	e := r.event()
	e.Type = EventTypeSyncCompleted
	if r.Err != nil {
		e.Type = EventTypeSyncFailed
	}
	return s.Append(ctx, e)
}

// LogWebhook records a processed webhook delivery.
func (s *Service) LogWebhook(ctx context.Context, r Run) error {
	e := r.event()
	e.Type = EventTypeWebhookProcessed
	if r.Err != nil {
		e.Type = EventTypeWebhookFailed
	}
	return s.Append(ctx, e)
}

func (r Run) event() Event {
	e := Event{
		Origin:      r.Origin,
		ActorUserID: r.ActorUserID,
		ActorRole:   r.ActorRole,
		RangeStart:  r.RangeStart,
		RangeEnd:    r.RangeEnd,
		Extension:   r.Extension,
		Synced:      r.Synced,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Metadata:    r.Metadata,
	}
	if r.Err != nil {
		e.Message = r.Err.Error()
	}
	return e
}
