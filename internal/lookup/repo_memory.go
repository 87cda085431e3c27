package lookup

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local development.
type MemoryRepo struct {
	mu       sync.Mutex
	current  map[int64]CurrentLead
	legacy   map[int64]LegacyLead
	contacts map[int64]Contact
	links    []contactLink

	// Calls counts repository invocations by method name.
	Calls map[string]int
}

type contactLink struct {
	contactID int64
	current   *int64
	legacy    *int64
	isMain    bool
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		current:  map[int64]CurrentLead{},
		legacy:   map[int64]LegacyLead{},
		contacts: map[int64]Contact{},
		Calls:    map[string]int{},
	}
}

func (r *MemoryRepo) AddLead(l CurrentLead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[l.ID] = l
}

func (r *MemoryRepo) AddLegacyLead(l LegacyLead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legacy[l.ID] = l
}

func (r *MemoryRepo) AddContact(c Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
}

// Link attaches a contact to a current lead, a legacy lead, or both (nil skips a side).
func (r *MemoryRepo) Link(contactID int64, current, legacy *int64, isMain bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, contactLink{contactID: contactID, current: current, legacy: legacy, isMain: isMain})
}

func (r *MemoryRepo) LeadRefsByPhoneSuffix(ctx context.Context, suffix string) ([]LeadRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["LeadRefsByPhoneSuffix"]++
	var out []LeadRef
	for _, id := range sortedKeys(r.current) {
		l := r.current[id]
		if containsDigits(l.Phone, suffix) || containsDigits(l.Mobile, suffix) {
			out = append(out, LeadRef{Schema: SchemaCurrent, ID: id})
		}
	}
	for _, id := range sortedKeys(r.legacy) {
		l := r.legacy[id]
		if containsDigits(l.Phone, suffix) || containsDigits(l.Mobile, suffix) {
			out = append(out, LeadRef{Schema: SchemaLegacy, ID: id})
		}
	}
	return out, nil
}

func (r *MemoryRepo) ContactsByPhones(ctx context.Context, variants []string) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["ContactsByPhones"]++
	want := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		want[v] = struct{}{}
	}
	return r.matchContacts(func(c Contact) bool {
		_, p := want[c.Phone]
		_, m := want[c.Mobile]
		return p || m
	}), nil
}

func (r *MemoryRepo) ContactsByPhoneSuffix(ctx context.Context, suffix string) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["ContactsByPhoneSuffix"]++
	return r.matchContacts(func(c Contact) bool {
		return containsDigits(c.Phone, suffix) ||
			containsDigits(c.Mobile, suffix) ||
			containsDigits(c.AdditionalPhones, suffix)
	}), nil
}

func (r *MemoryRepo) LeadRefsForContacts(ctx context.Context, contactIDs []int64) ([]LeadRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["LeadRefsForContacts"]++
	ids := make(map[int64]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		ids[id] = struct{}{}
	}
	links := make([]contactLink, 0)
	for _, l := range r.links {
		if _, ok := ids[l.contactID]; ok {
			links = append(links, l)
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].isMain != links[j].isMain {
			return links[i].isMain
		}
		return links[i].contactID < links[j].contactID
	})
	var out []LeadRef
	for _, l := range links {
		if l.current != nil {
			out = append(out, LeadRef{Schema: SchemaCurrent, ID: *l.current})
		}
		if l.legacy != nil {
			out = append(out, LeadRef{Schema: SchemaLegacy, ID: *l.legacy})
		}
	}
	return out, nil
}

func (r *MemoryRepo) CurrentLeads(ctx context.Context, ids []int64) ([]CurrentLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["CurrentLeads"]++
	var out []CurrentLead
	for _, id := range ids {
		if l, ok := r.current[id]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) LegacyLeads(ctx context.Context, ids []int64) ([]LegacyLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls["LegacyLeads"]++
	var out []LegacyLead
	for _, id := range ids {
		if l, ok := r.legacy[id]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) matchContacts(match func(Contact) bool) []Contact {
	var out []Contact
	for _, id := range sortedKeys(r.contacts) {
		if c := r.contacts[id]; match(c) {
			out = append(out, c)
		}
	}
	return out
}

// containsDigits reports whether the digits of s contain key. Stored values
// may carry extensions or several numbers, so this is not a suffix test.
func containsDigits(s, key string) bool {
	return key != "" && strings.Contains(digitsOnly(s), key)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
