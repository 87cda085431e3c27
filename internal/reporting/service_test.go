package reporting

import (
	"context"
	"errors"
	"testing"

	"crm-telephony/internal/calls"
)

func ptr(v int64) *int64 { return &v }

func seeded() *calls.MemoryRepo {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		calls.Entry{ExternalUniqueID: "u1", CallDate: "2024-03-01", Direction: calls.DirectionInbound, Status: calls.StatusAnswered, DurationSeconds: 60, BillableSeconds: 50, EmployeeID: ptr(1), RecordingURL: "r1"},
		calls.Entry{ExternalUniqueID: "u2", CallDate: "2024-03-01", Direction: calls.DirectionInbound, Status: calls.StatusNoAnswer, DurationSeconds: 20, EmployeeID: ptr(1), RecordingURL: "r2"},
		calls.Entry{ExternalUniqueID: "u3", CallDate: "2024-03-02", Direction: calls.DirectionOutbound, Status: calls.StatusAnswered, DurationSeconds: 100, BillableSeconds: 90, EmployeeID: ptr(2)},
		calls.Entry{ExternalUniqueID: "u4", CallDate: "2024-03-02", Direction: calls.DirectionOutbound, Status: calls.StatusBusy, DurationSeconds: 0},
		calls.Entry{ExternalUniqueID: "u5", CallDate: "2024-03-05", Direction: calls.DirectionInbound, Status: calls.StatusAnswered, DurationSeconds: 10},
	)
	return repo
}

func TestReporting_CallsSummaryAggregates(t *testing.T) {
	svc := NewService(seeded())

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{From: "2024-03-01", To: "2024-03-02"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 4 {
		t.Fatalf("expected 4 calls, got %d", out.TotalCalls)
	}
	if out.AnsweredCalls != 2 || out.MissedCalls != 1 {
		t.Fatalf("unexpected answered/missed: %d/%d", out.AnsweredCalls, out.MissedCalls)
	}
	if out.RecordedCalls != 1 {
		t.Fatalf("expected 1 recorded answered call, got %d", out.RecordedCalls)
	}
	if out.TotalDurationSeconds != 180 || out.AverageDurationSeconds != 45 {
		t.Fatalf("unexpected durations: %+v", out)
	}
	if out.AnswerRate != 0.5 {
		t.Fatalf("expected answer rate 0.5, got %v", out.AnswerRate)
	}
	if out.ByDirection[calls.DirectionOutbound] != 2 || out.ByStatus[calls.StatusBusy] != 1 {
		t.Fatalf("unexpected breakdowns: %+v %+v", out.ByDirection, out.ByStatus)
	}
	if len(out.ByEmployee) != 2 || out.ByEmployee[0].EmployeeID != 1 || out.ByEmployee[0].Calls != 2 || out.ByEmployee[0].BillableSeconds != 50 {
		t.Fatalf("unexpected per-employee: %+v", out.ByEmployee)
	}
	if len(out.ByDay) != 2 || out.ByDay[0].Date != "2024-03-01" || out.ByDay[1].Answered != 1 {
		t.Fatalf("unexpected per-day: %+v", out.ByDay)
	}
}

func TestReporting_EmployeeFilter(t *testing.T) {
	svc := NewService(seeded())
	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{From: "2024-03-01", To: "2024-03-31", EmployeeID: ptr(2)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 || out.AnsweredCalls != 1 {
		t.Fatalf("unexpected summary: %+v", out)
	}
}

func TestReporting_InvalidRange(t *testing.T) {
	svc := NewService(seeded())
	svc.MaxRangeDays = 30

	for _, req := range []CallsSummaryRequest{
		{From: "", To: "2024-03-01"},
		{From: "2024-03-02", To: "2024-03-01"},
		{From: "2024-01-01", To: "2024-03-01"},
	} {
		if _, err := svc.CallsSummary(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestReporting_EmptyRange(t *testing.T) {
	out, err := NewService(calls.NewMemoryRepo()).CallsSummary(context.Background(), CallsSummaryRequest{From: "2024-03-01", To: "2024-03-01"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 0 || out.AnswerRate != 0 || out.ByEmployee == nil {
		t.Fatalf("unexpected empty summary: %+v", out)
	}
}
