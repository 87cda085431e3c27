package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

var entryCols = []string{
	"id", "external_call_id", "call_date", "call_time", "source", "destination", "caller_id",
	"direction", "status", "duration", "billsec", "recording_url", "employee_id", "external_unique_id",
	"legacy_lead_id", "created_at",
}

func TestPostgresRepo_InsertReportsConflictAsNotInserted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepo(mock)
	e := Entry{ID: "c1", ExternalUniqueID: "1700000000.1", CallDate: "2024-03-01", CallTime: "10:00:00", Direction: DirectionInbound, Status: StatusAnswered}

	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(anyArgs(16)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT \\(external_unique_id\\) DO NOTHING").
		WithArgs(anyArgs(16)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.Insert(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_InsertUniqueViolationIsSkip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(anyArgs(16)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	ok, err := NewPostgresRepo(mock).Insert(context.Background(), Entry{ExternalUniqueID: "u"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresRepo_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(anyArgs(16)...).
		WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresRepo(mock).Insert(context.Background(), Entry{ExternalUniqueID: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresRepo_ExistsByUniqueID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("1700000000.1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewPostgresRepo(mock).ExistsByUniqueID(context.Background(), "1700000000.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_RecentByLegacyLeads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lead := int64(42)
	emp := int64(7)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(entryCols).
		AddRow("c2", "x2", "2024-03-01", "11:00:00", "0501234567", "101", nil, "inbound", "answered", 60, 55, "", &emp, "u2", &lead, now).
		AddRow("c1", "x1", "2024-02-28", "09:00:00", "0501234567", "102", nil, "inbound", "no_answer", 10, 0, "", nil, "u1", &lead, now)

	mock.ExpectQuery("WHERE legacy_lead_id = ANY").
		WithArgs([]int64{42}, 5).
		WillReturnRows(rows)

	got, err := NewPostgresRepo(mock).RecentByLegacyLeads(context.Background(), []int64{42}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, DirectionInbound, got[0].Direction)
	assert.Equal(t, StatusNoAnswer, got[1].Status)
	require.NotNil(t, got[0].EmployeeID)
	assert.Equal(t, int64(7), *got[0].EmployeeID)
	assert.Nil(t, got[1].EmployeeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_RecentByLegacyLeadsEmptyIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	got, err := NewPostgresRepo(mock).RecentByLegacyLeads(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepo_InsertIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	ok, err := repo.Insert(ctx, Entry{ExternalUniqueID: "u1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(ctx, Entry{ExternalUniqueID: "u1"})
	require.NoError(t, err)
	assert.False(t, ok)

	exists, _ := repo.ExistsByUniqueID(ctx, "u1")
	assert.True(t, exists)
	assert.Len(t, repo.Entries(), 1)
}

func TestMemoryRepo_RecentOrdersNewestFirstAndCaps(t *testing.T) {
	repo := NewMemoryRepo()
	for i, d := range []string{"2024-01-01", "2024-01-03", "2024-01-02"} {
		repo.Seed(Entry{ExternalUniqueID: d, CallDate: d, CallTime: "10:00:00", Source: "972501234567", Destination: "10" + string(rune('0'+i))})
	}

	got, err := repo.RecentByPhoneSuffix(context.Background(), "01234567", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-03", got[0].CallDate)
	assert.Equal(t, "2024-01-02", got[1].CallDate)

	inRange, err := repo.ListRange(context.Background(), "2024-01-02", "2024-01-03")
	require.NoError(t, err)
	assert.Len(t, inRange, 2)
}
