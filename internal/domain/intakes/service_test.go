package intakes

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]IntakeLog
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]IntakeLog{}}
}

func (r *testRepo) Create(ctx context.Context, l IntakeLog) error {
	if l.ID == "" {
		return errors.New("repo: id required")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) ListByMedication(ctx context.Context, medicationID string, filter ListFilter) ([]IntakeLog, error) {
	out := make([]IntakeLog, 0)
	for _, l := range r.byID {
		if l.MedicationID == medicationID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientUserID string, filter ListFilter) ([]IntakeLog, error) {
	out := make([]IntakeLog, 0)
	for _, l := range r.byID {
		if l.PatientUserID == patientUserID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) DeleteByMedication(ctx context.Context, medicationID string) error {
	for id, l := range r.byID {
		if l.MedicationID == medicationID {
			delete(r.byID, id)
		}
	}
	return nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Log_NormalizesDateAndStamps(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	l, err := svc.Log(context.Background(), "patient-1", "med-1", CreateInput{
		DateTaken: "2026-03-10",
		ImageURL:  "  https://cdn.example.com/p.jpg ",
	})
	if err != nil {
		t.Fatalf("Log error: %v", err)
	}
	if l.DateTaken != "2026-03-10" {
		t.Fatalf("expected normalized date, got %q", l.DateTaken)
	}
	if l.RecordedAt != now {
		t.Fatalf("expected RecordedAt stamped")
	}
	if l.ImageURL != "https://cdn.example.com/p.jpg" {
		t.Fatalf("expected trimmed image url, got %q", l.ImageURL)
	}
}

func TestService_Log_RejectsMalformedDate(t *testing.T) {
	svc := NewService(newTestRepo())

	for _, d := range []string{"", "10/03/2026", "2026-13-40", "not-a-date"} {
		if _, err := svc.Log(context.Background(), "patient-1", "med-1", CreateInput{DateTaken: d}); err != ErrInvalidInput {
			t.Fatalf("date %q: expected ErrInvalidInput, got %v", d, err)
		}
	}
}

func TestService_Log_AllowsDuplicateDayEntries(t *testing.T) {
	// El doble submit no se rechaza acá: el cálculo de adherencia
	// deduplica por fecha.
	repo := newTestRepo()
	svc := NewService(repo)

	in := CreateInput{DateTaken: "2026-03-10"}
	if _, err := svc.Log(context.Background(), "patient-1", "med-1", in); err != nil {
		t.Fatalf("Log #1 error: %v", err)
	}
	if _, err := svc.Log(context.Background(), "patient-1", "med-1", in); err != nil {
		t.Fatalf("Log #2 error: %v", err)
	}

	logs, err := svc.ListByMedication(context.Background(), "med-1", ListFilter{})
	if err != nil {
		t.Fatalf("ListByMedication error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 stored logs, got %d", len(logs))
	}
}

func TestService_DeleteByMedication_RemovesAll(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	_, _ = svc.Log(context.Background(), "patient-1", "med-1", CreateInput{DateTaken: "2026-03-09"})
	_, _ = svc.Log(context.Background(), "patient-1", "med-1", CreateInput{DateTaken: "2026-03-10"})
	_, _ = svc.Log(context.Background(), "patient-1", "med-2", CreateInput{DateTaken: "2026-03-10"})

	if err := svc.DeleteByMedication(context.Background(), "med-1"); err != nil {
		t.Fatalf("DeleteByMedication error: %v", err)
	}

	logs, _ := svc.ListByPatient(context.Background(), "patient-1", ListFilter{})
	if len(logs) != 1 {
		t.Fatalf("expected only med-2 logs to survive, got %d", len(logs))
	}
	if logs[0].MedicationID != "med-2" {
		t.Fatalf("expected surviving log for med-2, got %s", logs[0].MedicationID)
	}
}
