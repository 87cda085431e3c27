package lookup

import (
	"context"

	"crm-telephony/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Repository reads leads and contacts across both lead schemas.
// Suffix matches compare against the digits of the stored value.
type Repository interface {
	LeadRefsByPhoneSuffix(ctx context.Context, suffix string) ([]LeadRef, error)

	ContactsByPhones(ctx context.Context, variants []string) ([]Contact, error)
	ContactsByPhoneSuffix(ctx context.Context, suffix string) ([]Contact, error)
	LeadRefsForContacts(ctx context.Context, contactIDs []int64) ([]LeadRef, error)

	CurrentLeads(ctx context.Context, ids []int64) ([]CurrentLead, error)
	LegacyLeads(ctx context.Context, ids []int64) ([]LegacyLead, error)
}

type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) LeadRefsByPhoneSuffix(ctx context.Context, suffix string) ([]LeadRef, error) {
	const q = `
SELECT 'current', id FROM leads
WHERE regexp_replace(COALESCE(phone, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
   OR regexp_replace(COALESCE(mobile, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
UNION ALL
SELECT 'legacy', id FROM legacy_leads
WHERE regexp_replace(COALESCE(phone, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
   OR regexp_replace(COALESCE(mobile, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
`
	rows, err := r.db.Query(ctx, q, suffix)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: leads by suffix")
	}
	defer rows.Close()

	var out []LeadRef
	for rows.Next() {
		var (
			schema string
			id     int64
		)
		if err := rows.Scan(&schema, &id); err != nil {
			return nil, eris.Wrap(err, "lookup: scan lead ref")
		}
		out = append(out, LeadRef{Schema: Schema(schema), ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "lookup: iterate lead refs")
	}
	return out, nil
}

const contactColumns = `id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(mobile, ''), COALESCE(additional_phones, '')`

func (r *PostgresRepo) ContactsByPhones(ctx context.Context, variants []string) ([]Contact, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	q := `SELECT ` + contactColumns + `
FROM contacts
WHERE phone = ANY($1) OR mobile = ANY($1)
ORDER BY id`
	rows, err := r.db.Query(ctx, q, variants)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: contacts by phones")
	}
	return scanContacts(rows)
}

func (r *PostgresRepo) ContactsByPhoneSuffix(ctx context.Context, suffix string) ([]Contact, error) {
	q := `SELECT ` + contactColumns + `
FROM contacts
WHERE regexp_replace(COALESCE(phone, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
   OR regexp_replace(COALESCE(mobile, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
   OR regexp_replace(COALESCE(additional_phones, ''), '\D', '', 'g') LIKE '%' || $1 || '%'
ORDER BY id`
	rows, err := r.db.Query(ctx, q, suffix)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: contacts by suffix")
	}
	return scanContacts(rows)
}

func (r *PostgresRepo) LeadRefsForContacts(ctx context.Context, contactIDs []int64) ([]LeadRef, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT lead_id, legacy_lead_id
FROM contact_leads
WHERE contact_id = ANY($1)
ORDER BY is_main DESC, contact_id
`
	rows, err := r.db.Query(ctx, q, contactIDs)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: contact leads")
	}
	defer rows.Close()

	var out []LeadRef
	for rows.Next() {
		var current, legacy *int64
		if err := rows.Scan(&current, &legacy); err != nil {
			return nil, eris.Wrap(err, "lookup: scan contact lead")
		}
		// A link row may point into both schemas at once.
		if current != nil {
			out = append(out, LeadRef{Schema: SchemaCurrent, ID: *current})
		}
		if legacy != nil {
			out = append(out, LeadRef{Schema: SchemaLegacy, ID: *legacy})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "lookup: iterate contact leads")
	}
	return out, nil
}

func (r *PostgresRepo) CurrentLeads(ctx context.Context, ids []int64) ([]CurrentLead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
SELECT l.id, COALESCE(l.name, ''), COALESCE(l.stage, ''), COALESCE(l.category, ''), COALESCE(l.source, ''),
       l.scheduler_id, COALESCE(e.display_name, ''), COALESCE(l.phone, ''), COALESCE(l.mobile, '')
FROM leads l
LEFT JOIN employees e ON e.id = l.scheduler_id
WHERE l.id = ANY($1)
ORDER BY l.id
`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: current leads")
	}
	defer rows.Close()

	var out []CurrentLead
	for rows.Next() {
		var l CurrentLead
		if err := rows.Scan(&l.ID, &l.Name, &l.Stage, &l.Category, &l.Source, &l.SchedulerID, &l.SchedulerName, &l.Phone, &l.Mobile); err != nil {
			return nil, eris.Wrap(err, "lookup: scan current lead")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "lookup: iterate current leads")
	}
	return out, nil
}

func (r *PostgresRepo) LegacyLeads(ctx context.Context, ids []int64) ([]LegacyLead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
SELECT l.id, COALESCE(l.name, ''), COALESCE(st.name, ''), COALESCE(ca.name, ''), COALESCE(so.name, ''),
       l.scheduler_id, COALESCE(l.phone, ''), COALESCE(l.mobile, '')
FROM legacy_leads l
LEFT JOIN legacy_stages st ON st.id = l.stage_id
LEFT JOIN legacy_categories ca ON ca.id = l.category_id
LEFT JOIN legacy_sources so ON so.id = l.source_id
WHERE l.id = ANY($1)
ORDER BY l.id
`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: legacy leads")
	}
	defer rows.Close()

	var out []LegacyLead
	for rows.Next() {
		var l LegacyLead
		if err := rows.Scan(&l.ID, &l.Name, &l.Stage, &l.Category, &l.Source, &l.SchedulerID, &l.Phone, &l.Mobile); err != nil {
			return nil, eris.Wrap(err, "lookup: scan legacy lead")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "lookup: iterate legacy leads")
	}
	return out, nil
}

func scanContacts(rows pgx.Rows) ([]Contact, error) {
	defer rows.Close()
	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Mobile, &c.AdditionalPhones); err != nil {
			return nil, eris.Wrap(err, "lookup: scan contact")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "lookup: iterate contacts")
	}
	return out, nil
}
