package lookup

import (
	"context"
	"errors"
	"sort"

	"crm-telephony/internal/calls"
	"crm-telephony/pkg/logger"

	"github.com/rotisserie/eris"
)

// SchedulerNames resolves employee display names in one batch.
// employees.Directory satisfies it.
type SchedulerNames interface {
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

// CallHistory is the read side of call_logs used for the recent-calls panel.
type CallHistory interface {
	RecentByLegacyLeads(ctx context.Context, leadIDs []int64, limit int) ([]calls.Entry, error)
	RecentByPhoneSuffix(ctx context.Context, suffix string, limit int) ([]calls.Entry, error)
}

type Deps struct {
	Repo    Repository
	Names   SchedulerNames
	History CallHistory
	Cache   Cache // optional
}

type Options struct {
	Phone       PhoneOptions
	RecentLimit int // defaults to 5
}

type Service struct {
	repo    Repository
	names   SchedulerNames
	history CallHistory
	cache   Cache
	opts    Options
}

func NewService(d Deps, opts Options) (*Service, error) {
	if d.Repo == nil || d.Names == nil || d.History == nil {
		return nil, errors.New("lookup: repo, names and history are required")
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	opts.Phone = opts.Phone.withDefaults()
	return &Service{repo: d.Repo, names: d.Names, history: d.History, cache: d.Cache, opts: opts}, nil
}

// Lookup resolves a free-form phone number to leads in both schemas, the
// matching contact and the most recent calls.
func (s *Service) Lookup(ctx context.Context, raw string) (Result, error) {
	p := Normalize(raw, s.opts.Phone)
	if p.Digits == "" {
		return Result{}, ErrInvalidPhone
	}
	log := logger.From(ctx).With("phone_suffix", p.Suffix)

	// Keyed by the national core: numbers sharing a suffix can still match
	// different contacts exactly.
	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, p.Core)
		if err != nil {
			log.Warn("lookup cache read failed", "err", err)
		}
		if ok {
			res.Phone = p.Digits
			return res, nil
		}
	}

	refs := newRefSet()

	direct, err := s.repo.LeadRefsByPhoneSuffix(ctx, p.Suffix)
	if err != nil {
		return Result{}, eris.Wrap(err, "lookup: direct lead match")
	}
	refs.add(direct...)

	contacts, err := s.repo.ContactsByPhones(ctx, p.Variants)
	if err != nil {
		return Result{}, eris.Wrap(err, "lookup: contact match")
	}
	if refs.empty() && len(contacts) == 0 {
		contacts, err = s.repo.ContactsByPhoneSuffix(ctx, p.Suffix)
		if err != nil {
			return Result{}, eris.Wrap(err, "lookup: contact suffix match")
		}
	}
	if len(contacts) > 0 {
		ids := make([]int64, 0, len(contacts))
		for _, c := range contacts {
			ids = append(ids, c.ID)
		}
		linked, err := s.repo.LeadRefsForContacts(ctx, ids)
		if err != nil {
			return Result{}, eris.Wrap(err, "lookup: contact leads")
		}
		refs.add(linked...)
	}

	leads, err := s.leadViews(ctx, refs)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Phone:       p.Digits,
		Leads:       leads,
		RecentCalls: []calls.Entry{},
	}
	if len(contacts) > 0 {
		c := contacts[0]
		res.Contact = &c
	}
	res.Found = len(res.Leads) > 0 || res.Contact != nil
	if res.Found {
		res.RecentCalls = s.recentCalls(ctx, refs.of(SchemaLegacy), p.Suffix)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p.Core, res); err != nil {
			log.Warn("lookup cache write failed", "err", err)
		}
	}
	log.Debug("lookup resolved", "found", res.Found, "leads", len(res.Leads), "recent_calls", len(res.RecentCalls))
	return res, nil
}

// leadViews fetches each schema's rows once and normalizes them into LeadView.
func (s *Service) leadViews(ctx context.Context, refs *refSet) ([]LeadView, error) {
	out := make([]LeadView, 0)

	current, err := s.repo.CurrentLeads(ctx, refs.of(SchemaCurrent))
	if err != nil {
		return nil, eris.Wrap(err, "lookup: load current leads")
	}
	for _, l := range current {
		out = append(out, currentView(l))
	}

	legacy, err := s.repo.LegacyLeads(ctx, refs.of(SchemaLegacy))
	if err != nil {
		return nil, eris.Wrap(err, "lookup: load legacy leads")
	}
	names := s.schedulerNames(ctx, legacy)
	for _, l := range legacy {
		out = append(out, legacyView(l, names))
	}
	return out, nil
}

func (s *Service) schedulerNames(ctx context.Context, leads []LegacyLead) map[int64]string {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, l := range leads {
		if l.SchedulerID == nil {
			continue
		}
		if _, ok := seen[*l.SchedulerID]; ok {
			continue
		}
		seen[*l.SchedulerID] = struct{}{}
		ids = append(ids, *l.SchedulerID)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	names, err := s.names.NamesByIDs(ctx, ids)
	if err != nil {
		logger.From(ctx).Warn("scheduler names unavailable", "err", err)
		return nil
	}
	return names
}

// recentCalls prefers calls tied to the legacy leads and falls back to a
// suffix match on source/destination. Failures yield an empty list.
func (s *Service) recentCalls(ctx context.Context, legacyIDs []int64, suffix string) []calls.Entry {
	log := logger.From(ctx)
	if len(legacyIDs) > 0 {
		entries, err := s.history.RecentByLegacyLeads(ctx, legacyIDs, s.opts.RecentLimit)
		if err != nil {
			log.Warn("recent calls by lead failed", "err", err)
		} else if len(entries) > 0 {
			return entries
		}
	}
	entries, err := s.history.RecentByPhoneSuffix(ctx, suffix, s.opts.RecentLimit)
	if err != nil {
		log.Warn("recent calls by phone failed", "err", err)
		return []calls.Entry{}
	}
	if entries == nil {
		return []calls.Entry{}
	}
	return entries
}
