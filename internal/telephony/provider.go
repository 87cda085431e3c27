package telephony

import (
	"context"
	"time"
)

// FeedSource is the provider-agnostic view of the PBX used by business logic.
//
// Rules:
// - No PBX HTTP calls outside telephony adapters.
// - Request/response types stay free of vendor query parameters.
// - Failures are returned as *FetchError; adapters never retry.
type FeedSource interface {
	FetchCDRs(ctx context.Context, req FetchCDRRequest) (FetchCDRResult, error)
	FetchRecording(ctx context.Context, uniqueID string) (Recording, error)
}

type FetchCDRRequest struct {
	// From and To bound the query by calendar day. Whether they reach the
	// vendor depends on the adapter's date-range setting.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Extension optionally scopes the feed to one extension or phone.
	Extension string `json:"extension,omitempty"`
}

// FetchCDRResult carries the raw CSV body. Parsing belongs to the cdr package.
type FetchCDRResult struct {
	CSV         string `json:"-"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

// Recording is whatever the PBX returned for a recording request.
// URL is always set; exactly one of Audio, Payload or Body is usually populated.
type Recording struct {
	URL         string         `json:"url"`
	ContentType string         `json:"content_type"`
	Audio       []byte         `json:"-"`
	Payload     map[string]any `json:"payload,omitempty"`
	Body        string         `json:"body,omitempty"`
}

// IsAudio reports whether the PBX returned audio bytes.
func (r Recording) IsAudio() bool { return len(r.Audio) > 0 }
