package employees

import (
	"context"
	"sort"
	"sync"

	"crm-telephony/pkg/utils"

	"github.com/rotisserie/eris"
)

// Directory is the read side of the employees table.
type Directory interface {
	ListEmployees(ctx context.Context) ([]Employee, error)

	// NamesByIDs returns display names for the given ids in one round trip.
	// Unknown ids are absent from the map.
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

type PostgresDirectory struct {
	db utils.DB
}

func NewPostgresDirectory(db utils.DB) *PostgresDirectory { return &PostgresDirectory{db: db} }

func (d *PostgresDirectory) ListEmployees(ctx context.Context) ([]Employee, error) {
	const q = `
SELECT id, COALESCE(display_name, ''), COALESCE(extension, ''), COALESCE(phone, '')
FROM employees
ORDER BY id
`
	rows, err := d.db.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "employees: list")
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Extension, &e.Phone); err != nil {
			return nil, eris.Wrap(err, "employees: scan")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "employees: iterate")
	}
	return out, nil
}

func (d *PostgresDirectory) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, COALESCE(display_name, '') FROM employees WHERE id = ANY($1)`
	rows, err := d.db.Query(ctx, q, ids)
	if err != nil {
		return nil, eris.Wrap(err, "employees: names by ids")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "employees: scan name")
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "employees: iterate names")
	}
	return out, nil
}

// MemoryDirectory is an in-memory Directory for tests and local development.
type MemoryDirectory struct {
	mu        sync.Mutex
	employees map[int64]Employee

	// ListCalls counts ListEmployees invocations.
	ListCalls int
	// NamesCalls counts NamesByIDs invocations.
	NamesCalls int
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryDirectory(emps ...Employee) *MemoryDirectory {
	d := &MemoryDirectory{employees: map[int64]Employee{}}
	for _, e := range emps {
		d.employees[e.ID] = e
	}
	return d
}

func (d *MemoryDirectory) ListEmployees(ctx context.Context) ([]Employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ListCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	out := make([]Employee, 0, len(d.employees))
	for _, e := range d.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *MemoryDirectory) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.NamesCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if e, ok := d.employees[id]; ok {
			out[id] = e.DisplayName
		}
	}
	return out, nil
}
