package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"crm-telephony/internal/audit"
	"crm-telephony/internal/calls"
	"crm-telephony/internal/cdr"
	"crm-telephony/internal/events"
	"crm-telephony/internal/telephony"
	"crm-telephony/pkg/logger"

	"github.com/rotisserie/eris"
)

// RecordMapper turns a raw record into a storable entry.
type RecordMapper interface {
	Map(ctx context.Context, r cdr.RawRecord) (calls.Entry, error)
}

// Auditor records finished ingestion passes. Failures are logged, never returned.
type Auditor interface {
	LogSync(ctx context.Context, r audit.Run) error
	LogWebhook(ctx context.Context, r audit.Run) error
}

type Deps struct {
	Feed   telephony.FeedSource
	Mapper RecordMapper
	Calls  calls.Repository

	// Optional.
	Audit     Auditor
	Publisher events.Publisher
	Lock      Locker
	Now       func() time.Time

	// ResyncWindow is the trailing window an extension notification re-syncs.
	ResyncWindow time.Duration
}

// Service runs the CDR ingestion pipeline: fetch, parse, check, map, insert.
//
// Records are processed one at a time; a failing record never aborts the batch.
// Only a feed failure aborts a sync, and it does so before any write.
type Service struct {
	feed      telephony.FeedSource
	mapper    RecordMapper
	calls     calls.Repository
	audit     Auditor
	publisher events.Publisher
	lock      Locker
	now       func() time.Time
	window    time.Duration
}

func NewService(d Deps) (*Service, error) {
	if d.Feed == nil || d.Mapper == nil || d.Calls == nil {
		return nil, errors.New("ingest: feed, mapper and calls repository are required")
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ResyncWindow <= 0 {
		d.ResyncWindow = time.Hour
	}
	return &Service{
		feed:      d.Feed,
		mapper:    d.Mapper,
		calls:     d.Calls,
		audit:     d.Audit,
		publisher: d.Publisher,
		lock:      d.Lock,
		now:       d.Now,
		window:    d.ResyncWindow,
	}, nil
}

// SyncRange fetches the feed for r (optionally scoped to one extension) and
// stores every record not already present. Only one SyncRange runs at a time
// when a Locker is configured.
func (s *Service) SyncRange(ctx context.Context, r Range, extension string) (Result, error) {
	if err := r.Validate(0); err != nil {
		return Result{}, err
	}

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		switch {
		case err != nil:
			logger.From(ctx).Warn("sync lock unavailable, continuing without it", "err", err)
		case !ok:
			return Result{}, ErrSyncInProgress
		default:
			defer release()
		}
	}
	return s.syncWindow(ctx, r, extension)
}

// syncWindow is the unlocked sync pass. Webhook re-syncs use it directly:
// they may overlap a running sync because existing records are skipped and
// the unique key absorbs any race.
func (s *Service) syncWindow(ctx context.Context, r Range, extension string) (Result, error) {
	log := logger.From(ctx).With("range_start", r.StartDate(), "range_end", r.EndDate(), "extension", extension)
	actor := actorFrom(ctx)
	run := audit.Run{
		Origin:      actor.Origin,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		RangeStart:  r.StartDate(),
		RangeEnd:    r.EndDate(),
		Extension:   extension,
	}

	feed, err := s.feed.FetchCDRs(ctx, telephony.FetchCDRRequest{From: r.Start, To: r.End, Extension: extension})
	if err != nil {
		log.Error("cdr feed fetch failed", "err", err)
		run.Err = err
		s.logSync(ctx, run)
		return Result{}, eris.Wrap(err, "ingest: fetch feed")
	}

	records := cdr.Parse(feed.CSV)
	res := s.process(ctx, records, "sync")

	run.Synced, run.Skipped, run.Failed = res.Synced, res.Skipped, len(res.Errors)
	run.Metadata = errorsMetadata(res.Errors, "")
	s.logSync(ctx, run)

	log.Info("cdr sync finished", "records", len(records), "synced", res.Synced, "skipped", res.Skipped, "errors", len(res.Errors))
	return res, nil
}

// process stores each record independently.
func (s *Service) process(ctx context.Context, records []cdr.RawRecord, origin string) Result {
	res := Result{Success: true}
	log := logger.From(ctx)

	for _, rec := range records {
		id := rec.UniqueID
		if id == "" {
			res.Errors = append(res.Errors, RecordError{ExternalID: rec.CallID, Error: cdr.ErrMissingUniqueID.Error()})
			continue
		}

		exists, err := s.calls.ExistsByUniqueID(ctx, id)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{ExternalID: id, Error: err.Error()})
			continue
		}
		if exists {
			res.Skipped++
			continue
		}

		entry, err := s.mapper.Map(ctx, rec)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{ExternalID: id, Error: err.Error()})
			continue
		}

		inserted, err := s.calls.Insert(ctx, entry)
		if err != nil {
			log.Warn("call log insert failed", "unique_id", id, "err", err)
			res.Errors = append(res.Errors, RecordError{ExternalID: id, Error: err.Error()})
			continue
		}
		if !inserted {
			// Lost a race with a concurrent pass; the row exists now.
			res.Skipped++
			continue
		}
		res.Synced++

		if err := s.publisher.PublishCallLogged(ctx, events.NewCallLogged(entry, origin, s.now())); err != nil {
			log.Warn("call logged event not published", "unique_id", id, "err", err)
		}
	}
	return res
}

func (s *Service) logSync(ctx context.Context, run audit.Run) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogSync(ctx, run); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}

func (s *Service) logWebhook(ctx context.Context, run audit.Run) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogWebhook(ctx, run); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}

// errorsMetadata renders per-record errors (capped) for the audit trail.
func errorsMetadata(errs []RecordError, kind string) string {
	if len(errs) == 0 && kind == "" {
		return ""
	}
	const maxErrors = 50
	if len(errs) > maxErrors {
		errs = errs[:maxErrors]
	}
	m := map[string]any{}
	if kind != "" {
		m["kind"] = kind
	}
	if len(errs) > 0 {
		m["errors"] = errs
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
