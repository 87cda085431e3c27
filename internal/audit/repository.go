package audit

import (
	"context"

	"crm-telephony/pkg/utils"

	"github.com/rotisserie/eris"
)

// PostgresRepo appends to audit_events. There is deliberately no read path here.
type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, origin, actor_user_id, actor_role, range_start, range_end, extension,
  synced, skipped, failed, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13,'')::jsonb,$14)
`
	_, err := r.db.Exec(ctx, q,
		e.ID,
		string(e.Type),
		e.Origin,
		e.ActorUserID,
		e.ActorRole,
		e.RangeStart,
		e.RangeEnd,
		e.Extension,
		e.Synced,
		e.Skipped,
		e.Failed,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "audit: append %s", e.Type)
	}
	return nil
}
