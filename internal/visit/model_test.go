package visit

import (
	"strings"
	"testing"
	"time"
)

func TestNewVisit(t *testing.T) {
	v := New()

	if v.ID == "" {
		t.Fatal("expected a generated id")
	}
	if v.Status != StatusCreated {
		t.Fatalf("expected status %q, got %q", StatusCreated, v.Status)
	}
	if v.AuditEvents == nil || len(v.AuditEvents) != 0 {
		t.Fatalf("expected empty audit events, got %v", v.AuditEvents)
	}
	if v.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
	if v.CreatedAt.Location() != time.UTC {
		t.Fatal("expected created_at in UTC")
	}
}

func TestAppendEventFormat(t *testing.T) {
	v := New()
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	v.AppendEvent(EventVisitCreated, at)
	v.AppendEvent(EventIntakeFinished, at.Add(time.Minute))

	if len(v.AuditEvents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(v.AuditEvents))
	}
	if got, want := v.AuditEvents[0], "visit_created:2025-03-14T09:26:53Z"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if !strings.HasPrefix(v.AuditEvents[1], "intake_finished:") {
		t.Fatalf("unexpected second event %q", v.AuditEvents[1])
	}
}

func TestAppendEventNormalizesToUTC(t *testing.T) {
	v := New()
	loc := time.FixedZone("UTC+2", 2*60*60)
	v.AppendEvent(EventVisitStarted, time.Date(2025, 3, 14, 11, 0, 0, 0, loc))

	if got, want := v.AuditEvents[0], "visit_started:2025-03-14T09:00:00Z"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
