package calls

import (
	"encoding/json"
	"time"
)

// Entry is one persisted call-log row synced from the PBX.
//
// Idempotency invariant: at most one Entry per ExternalUniqueID. The call_logs
// table carries a UNIQUE constraint on external_unique_id; the existence check
// done before insert only avoids needless conflicts.
//
// Entries are created once (sync or webhook) and never mutated by this service.
type Entry struct {
	ID             string `json:"id" db:"id"`
	ExternalCallID string `json:"external_call_id" db:"external_call_id"`

	CallDate string `json:"call_date" db:"call_date"` // YYYY-MM-DD
	CallTime string `json:"call_time" db:"call_time"` // HH:MM:SS

	Source      string `json:"source" db:"source"`
	Destination string `json:"destination" db:"destination"`
	CallerID    *int64 `json:"caller_id,omitempty" db:"caller_id"`

	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	DurationSeconds int `json:"duration" db:"duration"`
	BillableSeconds int `json:"billsec" db:"billsec"`

	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`
	EmployeeID   *int64 `json:"employee_id,omitempty" db:"employee_id"`

	ExternalUniqueID string `json:"external_unique_id" db:"external_unique_id"`

	// LegacyLeadID is written by other subsystems; read here for lookups only.
	LegacyLeadID *int64 `json:"legacy_lead_id,omitempty" db:"legacy_lead_id"`

	// Raw is the audit snapshot of the source record.
	Raw json.RawMessage `json:"raw,omitempty" db:"raw"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionInbound    Direction = "inbound"
	DirectionOutbound   Direction = "outbound"
	DirectionQueue      Direction = "queue"
	DirectionConference Direction = "conference"
	DirectionVoicemail  Direction = "voicemail"
	DirectionUnknown    Direction = "unknown"
)

type Status string

const (
	StatusAnswered   Status = "answered"
	StatusNoAnswer   Status = "no_answer"
	StatusBusy       Status = "busy"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRedirected Status = "redirected"
	StatusUnknown    Status = "unknown"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionQueue, DirectionConference, DirectionVoicemail, DirectionUnknown:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAnswered, StatusNoAnswer, StatusBusy, StatusFailed, StatusCancelled, StatusRedirected, StatusUnknown:
		return true
	}
	return false
}

// StartedAt combines CallDate and CallTime. The zero time is returned when either is unparseable.
func (e Entry) StartedAt() time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", e.CallDate+" "+e.CallTime)
	if err != nil {
		return time.Time{}
	}
	return t
}
