package calls

import (
	"context"
	"errors"
	"time"

	"crm-telephony/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Repository is the persistence contract for call-log entries.
//
// Insert must be idempotent on ExternalUniqueID: a second insert for the same id
// reports inserted=false instead of an error.
type Repository interface {
	ExistsByUniqueID(ctx context.Context, uniqueID string) (bool, error)
	Insert(ctx context.Context, e Entry) (inserted bool, err error)

	RecentByLegacyLeads(ctx context.Context, leadIDs []int64, limit int) ([]Entry, error)
	RecentByPhoneSuffix(ctx context.Context, suffix string, limit int) ([]Entry, error)

	// ListRange returns entries with from <= call_date <= to (YYYY-MM-DD).
	ListRange(ctx context.Context, from, to string) ([]Entry, error)
}

// PostgresRepo implements Repository against the call_logs table.
// It assumes the UNIQUE (external_unique_id) constraint from the schema migration.
type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const entryColumns = `id, external_call_id, call_date::text, call_time::text, source, destination, caller_id,
       direction, status, duration, billsec, recording_url, employee_id, external_unique_id, legacy_lead_id, created_at`

func (r *PostgresRepo) ExistsByUniqueID(ctx context.Context, uniqueID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM call_logs WHERE external_unique_id = $1)`
	var ok bool
	if err := r.db.QueryRow(ctx, q, uniqueID).Scan(&ok); err != nil {
		return false, eris.Wrapf(err, "calls: exists %s", uniqueID)
	}
	return ok, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, e Entry) (bool, error) {
	const q = `
INSERT INTO call_logs (
  id, external_call_id, call_date, call_time, source, destination, caller_id,
  direction, status, duration, billsec, recording_url, employee_id, external_unique_id, raw, created_at
) VALUES (
  $1,$2,$3::text::date,$4::text::time,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
ON CONFLICT (external_unique_id) DO NOTHING
`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	tag, err := r.db.Exec(ctx, q,
		e.ID,
		e.ExternalCallID,
		e.CallDate,
		e.CallTime,
		e.Source,
		e.Destination,
		e.CallerID,
		string(e.Direction),
		string(e.Status),
		e.DurationSeconds,
		e.BillableSeconds,
		e.RecordingURL,
		e.EmployeeID,
		e.ExternalUniqueID,
		[]byte(e.Raw),
		e.CreatedAt,
	)
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "calls: insert %s", e.ExternalUniqueID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepo) RecentByLegacyLeads(ctx context.Context, leadIDs []int64, limit int) ([]Entry, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + entryColumns + `
FROM call_logs
WHERE legacy_lead_id = ANY($1)
ORDER BY call_date DESC, call_time DESC
LIMIT $2`
	rows, err := r.db.Query(ctx, q, leadIDs, limit)
	if err != nil {
		return nil, eris.Wrap(err, "calls: recent by legacy leads")
	}
	return scanEntries(rows)
}

func (r *PostgresRepo) RecentByPhoneSuffix(ctx context.Context, suffix string, limit int) ([]Entry, error) {
	if suffix == "" {
		return nil, errors.New("calls: suffix required")
	}
	q := `SELECT ` + entryColumns + `
FROM call_logs
WHERE source LIKE '%' || $1 OR destination LIKE '%' || $1
ORDER BY call_date DESC, call_time DESC
LIMIT $2`
	rows, err := r.db.Query(ctx, q, suffix, limit)
	if err != nil {
		return nil, eris.Wrap(err, "calls: recent by suffix")
	}
	return scanEntries(rows)
}

func (r *PostgresRepo) ListRange(ctx context.Context, from, to string) ([]Entry, error) {
	q := `SELECT ` + entryColumns + `
FROM call_logs
WHERE call_date BETWEEN $1::text::date AND $2::text::date
ORDER BY call_date, call_time`
	rows, err := r.db.Query(ctx, q, from, to)
	if err != nil {
		return nil, eris.Wrap(err, "calls: list range")
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			direction string
			status    string
		)
		if err := rows.Scan(
			&e.ID,
			&e.ExternalCallID,
			&e.CallDate,
			&e.CallTime,
			&e.Source,
			&e.Destination,
			&e.CallerID,
			&direction,
			&status,
			&e.DurationSeconds,
			&e.BillableSeconds,
			&e.RecordingURL,
			&e.EmployeeID,
			&e.ExternalUniqueID,
			&e.LegacyLeadID,
			&e.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "calls: scan entry")
		}
		e.Direction = Direction(direction)
		e.Status = Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "calls: iterate entries")
	}
	return out, nil
}
