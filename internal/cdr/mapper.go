package cdr

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm-telephony/internal/calls"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

var (
	ErrMissingUniqueID = errors.New("cdr: record has no unique id")
	ErrBadTimestamp    = errors.New("cdr: unparseable start timestamp")
)

// EmployeeResolver maps a cleaned source (extension or phone) to an employee id.
// Implementations return nil instead of failing.
type EmployeeResolver interface {
	Resolve(ctx context.Context, raw string) *int64
}

type MapperOptions struct {
	Tenant string

	// RecordingURLTemplate may contain {id} and {tenant}.
	RecordingURLTemplate string

	// NewID overrides local id generation (tests).
	NewID func() string
}

// Mapper turns RawRecords into call-log entries.
type Mapper struct {
	rules    Rules
	resolver EmployeeResolver
	opts     MapperOptions
}

func NewMapper(rules Rules, resolver EmployeeResolver, opts MapperOptions) *Mapper {
	if opts.NewID == nil {
		opts.NewID = newLocalID
	}
	return &Mapper{rules: rules, resolver: resolver, opts: opts}
}

var startLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02 15:04:05",
}

// Map builds a calls.Entry from r. Employee resolution never fails the mapping.
func (m *Mapper) Map(ctx context.Context, r RawRecord) (calls.Entry, error) {
	if strings.TrimSpace(r.UniqueID) == "" {
		return calls.Entry{}, ErrMissingUniqueID
	}

	date, clock, err := splitStart(r.Start)
	if err != nil {
		return calls.Entry{}, eris.Wrapf(err, "cdr: start %q", r.Start)
	}

	src := m.rules.Clean(r.Source, m.opts.Tenant)
	dst := m.rules.Clean(r.Destination, m.opts.Tenant)

	raw, err := json.Marshal(r)
	if err != nil {
		return calls.Entry{}, eris.Wrap(err, "cdr: snapshot")
	}

	e := calls.Entry{
		ID:               m.opts.NewID(),
		ExternalCallID:   r.CallID,
		CallDate:         date,
		CallTime:         clock,
		Source:           src,
		Destination:      dst,
		CallerID:         callerID(r.CallerID, src),
		Direction:        m.rules.Direction(r.Context, src, dst),
		Status:           m.rules.Status(r.Disposition),
		DurationSeconds:  r.Duration,
		BillableSeconds:  r.BillSec,
		RecordingURL:     RecordingURL(m.opts.RecordingURLTemplate, r.UniqueID, m.opts.Tenant),
		ExternalUniqueID: r.UniqueID,
		Raw:              raw,
		CreatedAt:        time.Now().UTC(),
	}
	if m.resolver != nil && src != "" {
		e.EmployeeID = m.resolver.Resolve(ctx, src)
	}
	return e, nil
}

// RecordingURL expands tmpl for a unique id. It does no I/O.
func RecordingURL(tmpl, uniqueID, tenant string) string {
	if tmpl == "" {
		return ""
	}
	return strings.NewReplacer(
		"{id}", url.QueryEscape(uniqueID),
		"{tenant}", url.QueryEscape(tenant),
	).Replace(tmpl)
}

func splitStart(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04:05"), nil
		}
	}
	return "", "", ErrBadTimestamp
}

// callerID prefers the number inside "Name" <number>, then the cleaned source.
func callerID(clid, src string) *int64 {
	candidate := clid
	if i := strings.LastIndexByte(clid, '<'); i >= 0 {
		if j := strings.IndexByte(clid[i:], '>'); j > 0 {
			candidate = clid[i+1 : i+j]
		}
	}
	if n, ok := parseDigits(candidate); ok {
		return &n
	}
	if n, ok := parseDigits(src); ok {
		return &n
	}
	return nil
}

func parseDigits(s string) (int64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" || len(s) > 18 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func newLocalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
