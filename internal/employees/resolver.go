package employees

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crm-telephony/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const suffixDigits = 7

// Resolver maps a raw extension or phone string to an employee id.
//
// Tiers, first match wins:
//  1. exact extension
//  2. exact phone
//  3. numeric input of at least 7 digits: last 7 digits as a suffix of an
//     employee phone or extension
//
// Resolve never fails. Directory errors are logged and resolve to nil.
type Resolver struct {
	dir      Directory
	ttl      time.Duration
	sentinel string
	now      func() time.Time

	sf singleflight.Group

	mu       sync.RWMutex
	cached   []Employee
	loadedAt time.Time
}

type ResolverOptions struct {
	// TTL bounds how long a loaded directory is reused. Zero reloads on every call.
	TTL time.Duration
	// NoData is the feed's "no data" marker. Defaults to "N/A".
	NoData string
}

func NewResolver(dir Directory, opts ResolverOptions) *Resolver {
	if opts.NoData == "" {
		opts.NoData = "N/A"
	}
	return &Resolver{dir: dir, ttl: opts.TTL, sentinel: opts.NoData, now: time.Now}
}

func (r *Resolver) Resolve(ctx context.Context, raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, r.sentinel) {
		return nil
	}

	emps, err := r.directory(ctx)
	if err != nil {
		logger.From(ctx).Warn("employee directory unavailable", "error", err)
		return nil
	}

	for _, e := range emps {
		if e.Extension != "" && e.Extension == raw {
			return ptr(e.ID)
		}
	}
	for _, e := range emps {
		if e.Phone != "" && e.Phone == raw {
			return ptr(e.ID)
		}
	}

	if len(raw) < suffixDigits || !isDigits(raw) {
		return nil
	}
	tail := raw[len(raw)-suffixDigits:]
	for _, e := range emps {
		if strings.HasSuffix(digitsOnly(e.Phone), tail) || strings.HasSuffix(digitsOnly(e.Extension), tail) {
			return ptr(e.ID)
		}
	}
	return nil
}

// Invalidate drops the cached directory.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.loadedAt = time.Time{}
	r.mu.Unlock()
}

func (r *Resolver) directory(ctx context.Context) ([]Employee, error) {
	r.mu.RLock()
	if r.cached != nil && r.ttl > 0 && r.now().Sub(r.loadedAt) < r.ttl {
		emps := r.cached
		r.mu.RUnlock()
		return emps, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.sf.Do("directory", func() (any, error) {
		emps, err := r.dir.ListEmployees(ctx)
		if err != nil {
			return nil, err
		}
		sorted := make([]Employee, len(emps))
		copy(sorted, emps)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

		r.mu.Lock()
		r.cached = sorted
		r.loadedAt = r.now()
		r.mu.Unlock()
		return sorted, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Employee), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func ptr(v int64) *int64 { return &v }
