package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestService_AppendRequiresTypeAndOrigin(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Origin: "api"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeSyncCompleted}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{Type: "other", Origin: "api"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_LogSync(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	if err := svc.LogSync(context.Background(), Run{Origin: "api", ActorUserID: "u1", ActorRole: "admin", RangeStart: "2024-03-01", RangeEnd: "2024-03-01", Synced: 3, Skipped: 1}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogSync(context.Background(), Run{Origin: "cli", Err: errors.New("pbx: status 503")}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventTypeSyncCompleted || evs[0].Synced != 3 || evs[0].ID == "" {
		t.Fatalf("unexpected first event: %+v", evs[0])
	}
	if !evs[0].CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected clock time, got %v", evs[0].CreatedAt)
	}
	if evs[1].Type != EventTypeSyncFailed || evs[1].Message != "pbx: status 503" {
		t.Fatalf("unexpected second event: %+v", evs[1])
	}
}

func TestService_LogWebhook(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogWebhook(context.Background(), Run{Origin: "webhook", Synced: 1, Metadata: `{"kind":"single_record"}`}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if evs := repo.Events(); len(evs) != 1 || evs[0].Type != EventTypeWebhookProcessed {
		t.Fatalf("expected webhook_processed, got %+v", evs)
	}

	if err := svc.LogWebhook(context.Background(), Run{Origin: "webhook", Err: errors.New("unrecognized payload")}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n := repo.Count(EventTypeWebhookFailed); n != 1 {
		t.Fatalf("expected 1 webhook_failed, got %d", n)
	}
}

func TestService_NilIsNotConfigured(t *testing.T) {
	var svc *Service
	if err := svc.LogSync(context.Background(), Run{Origin: "api"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPostgresRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	defer mock.Close()

	args := make([]any, 14)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewPostgresRepo(mock).Append(context.Background(), Event{ID: "a", Type: EventTypeSyncCompleted, Origin: "api"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
