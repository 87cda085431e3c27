package ingest

import (
	"bytes"
	"encoding/json"
	"strings"

	"crm-telephony/internal/cdr"
)

// Payload is a webhook body resolved into one of four shapes:
// Batch, SingleRecord, ExtensionNotification or NestedContainer.
type Payload interface {
	Kind() string
	isPayload()
}

// Batch is a top-level array of full records.
type Batch struct {
	Records []cdr.RawRecord
}

// SingleRecord is one full record, recognized by an id field.
type SingleRecord struct {
	Record cdr.RawRecord
}

// ExtensionNotification carries only a phone or extension; it triggers a
// re-sync of the trailing window for that extension.
type ExtensionNotification struct {
	Extension string
}

// NestedContainer is an object wrapping a batch under Key.
type NestedContainer struct {
	Key     string
	Records []cdr.RawRecord
}

func (Batch) Kind() string                 { return "batch" }
func (SingleRecord) Kind() string          { return "single_record" }
func (ExtensionNotification) Kind() string { return "extension_notification" }
func (NestedContainer) Kind() string       { return "nested_container" }

func (Batch) isPayload()                 {}
func (SingleRecord) isPayload()          {}
func (ExtensionNotification) isPayload() {}
func (NestedContainer) isPayload()       {}

// Records returns the full records a payload carries, if any.
func Records(p Payload) []cdr.RawRecord {
	switch v := p.(type) {
	case Batch:
		return v.Records
	case NestedContainer:
		return v.Records
	case SingleRecord:
		return []cdr.RawRecord{v.Record}
	default:
		return nil
	}
}

var (
	containerKeys = []string{"data", "records", "cdrs", "calls"}
	recordIDKeys  = []string{"uniqueid", "unique_id", "uniqueId", "call_id", "callid", "callId", "id"}
	extensionKeys = []string{"extension", "ext", "phone", "caller", "src"}
)

// ParsePayload resolves a webhook body once, at the boundary.
func ParsePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrUnknownPayload
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrUnknownPayload
	}
	return resolve(v, true)
}

func resolve(v any, top bool) (Payload, error) {
	switch t := v.(type) {
	case []any:
		recs, err := recordsFrom(t)
		if err != nil {
			return nil, err
		}
		return Batch{Records: recs}, nil

	case map[string]any:
		for _, k := range containerKeys {
			inner, ok := t[k]
			if !ok {
				continue
			}
			switch iv := inner.(type) {
			case []any:
				recs, err := recordsFrom(iv)
				if err != nil {
					return nil, err
				}
				return NestedContainer{Key: k, Records: recs}, nil
			case map[string]any:
				if top {
					return resolve(iv, false)
				}
			}
		}
		if hasAny(t, recordIDKeys) {
			// A bare "id" is the PBX unique id when no explicit one is sent.
			if !hasAny(t, recordIDKeys[:3]) {
				if id := scalar(t["id"]); id != "" {
					t["uniqueid"] = id
				}
			}
			return SingleRecord{Record: cdr.RecordFromMap(t)}, nil
		}
		for _, k := range extensionKeys {
			if s := scalar(t[k]); s != "" {
				return ExtensionNotification{Extension: s}, nil
			}
		}
	}
	return nil, ErrUnknownPayload
}

func recordsFrom(items []any) ([]cdr.RawRecord, error) {
	out := make([]cdr.RawRecord, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, ErrUnknownPayload
		}
		out = append(out, cdr.RecordFromMap(m))
	}
	return out, nil
}

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if scalar(m[k]) != "" {
			return true
		}
	}
	return false
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
