package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local development.
// It enforces the same uniqueness on ExternalUniqueID as the Postgres table.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
	byUID   map[string]int

	// InsertErr, when set, is returned by Insert for the matching unique id.
	InsertErr map[string]error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUID: map[string]int{}, InsertErr: map[string]error{}}
}

func (r *MemoryRepo) ExistsByUniqueID(ctx context.Context, uniqueID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byUID[uniqueID]
	return ok, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.InsertErr[e.ExternalUniqueID]; err != nil {
		return false, err
	}
	if _, ok := r.byUID[e.ExternalUniqueID]; ok {
		return false, nil
	}
	r.byUID[e.ExternalUniqueID] = len(r.entries)
	r.entries = append(r.entries, e)
	return true, nil
}

func (r *MemoryRepo) RecentByLegacyLeads(ctx context.Context, leadIDs []int64, limit int) ([]Entry, error) {
	ids := make(map[int64]struct{}, len(leadIDs))
	for _, id := range leadIDs {
		ids[id] = struct{}{}
	}
	return r.recent(limit, func(e Entry) bool {
		if e.LegacyLeadID == nil {
			return false
		}
		_, ok := ids[*e.LegacyLeadID]
		return ok
	}), nil
}

func (r *MemoryRepo) RecentByPhoneSuffix(ctx context.Context, suffix string, limit int) ([]Entry, error) {
	return r.recent(limit, func(e Entry) bool {
		return strings.HasSuffix(e.Source, suffix) || strings.HasSuffix(e.Destination, suffix)
	}), nil
}

func (r *MemoryRepo) ListRange(ctx context.Context, from, to string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if e.CallDate < from || e.CallDate > to {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Seed adds entries directly, bypassing uniqueness. Intended for test fixtures.
func (r *MemoryRepo) Seed(entries ...Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.byUID[e.ExternalUniqueID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
}

// Entries returns a copy of all stored entries in insertion order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *MemoryRepo) recent(limit int, match func(Entry) bool) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CallDate != out[j].CallDate {
			return out[i].CallDate > out[j].CallDate
		}
		return out[i].CallTime > out[j].CallTime
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
