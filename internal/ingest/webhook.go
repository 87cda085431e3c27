package ingest

import (
	"context"

	"crm-telephony/internal/audit"
	"crm-telephony/pkg/logger"
)

// HandleWebhook processes one PBX webhook body. It is meant to run after the
// HTTP caller has been acknowledged; the returned error only feeds logs.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	ctx = WithActor(ctx, Actor{Origin: "webhook"})
	log := logger.From(ctx)

	p, err := ParsePayload(body)
	if err != nil {
		s.logWebhook(ctx, audit.Run{Origin: "webhook", Err: err})
		return err
	}
	log = log.With("payload", p.Kind())

	if n, ok := p.(ExtensionNotification); ok {
		r := TrailingWindow(s.now(), s.window)
		log.Info("extension notification, re-syncing trailing window", "extension", n.Extension, "range_start", r.StartDate(), "range_end", r.EndDate())
		_, err := s.syncWindow(ctx, r, n.Extension)
		return err
	}

	records := Records(p)
	res := s.process(ctx, records, "webhook")
	s.logWebhook(ctx, audit.Run{
		Origin:   "webhook",
		Synced:   res.Synced,
		Skipped:  res.Skipped,
		Failed:   len(res.Errors),
		Metadata: errorsMetadata(res.Errors, p.Kind()),
	})
	if len(res.Errors) > 0 {
		log.Warn("webhook records failed", "records", len(records), "errors", len(res.Errors), "first_error", res.Errors[0].Error)
	}
	log.Info("webhook processed", "records", len(records), "synced", res.Synced, "skipped", res.Skipped)
	return nil
}
