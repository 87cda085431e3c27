package calls

import (
	"testing"
	"time"
)

func TestDirectionAndStatusValid(t *testing.T) {
	for _, d := range []Direction{DirectionInbound, DirectionOutbound, DirectionQueue, DirectionConference, DirectionVoicemail, DirectionUnknown} {
		if !d.Valid() {
			t.Fatalf("expected %q to be valid", d)
		}
	}
	if Direction("sideways").Valid() {
		t.Fatalf("expected unknown direction literal to be invalid")
	}

	for _, s := range []Status{StatusAnswered, StatusNoAnswer, StatusBusy, StatusFailed, StatusCancelled, StatusRedirected, StatusUnknown} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("ANSWERED").Valid() {
		t.Fatalf("statuses are lower-case")
	}
}

func TestEntry_StartedAt(t *testing.T) {
	e := Entry{CallDate: "2024-03-01", CallTime: "10:15:00"}
	want := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := e.StartedAt(); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := (Entry{CallDate: "bad"}).StartedAt(); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}
