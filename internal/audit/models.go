package audit

import "time"

// Event is an immutable, append-only record of one ingestion run.
//
// Invariants:
// - Events are never updated or deleted.
// - actor capture is best-effort; do not block a sync on audit failures.
//
// Storage: table audit_events, INSERT-only.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates which ingestion path produced the record.
	Type EventType `json:"type" db:"type"`

	// Origin is api, cli or webhook.
	Origin string `json:"origin" db:"origin"`

	// ActorUserID is the authenticated user who started the run (empty for webhooks).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	RangeStart string `json:"range_start,omitempty" db:"range_start"`
	RangeEnd   string `json:"range_end,omitempty" db:"range_end"`
	Extension  string `json:"extension,omitempty" db:"extension"`

	Synced  int `json:"synced" db:"synced"`
	Skipped int `json:"skipped" db:"skipped"`
	Failed  int `json:"failed" db:"failed"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details (per-record errors, payload kind).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSyncCompleted    EventType = "sync_completed"
	EventTypeSyncFailed       EventType = "sync_failed"
	EventTypeWebhookProcessed EventType = "webhook_processed"
	EventTypeWebhookFailed    EventType = "webhook_failed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeSyncCompleted, EventTypeSyncFailed, EventTypeWebhookProcessed, EventTypeWebhookFailed:
		return true
	}
	return false
}
