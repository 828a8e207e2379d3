package carelinks

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]CareLink
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]CareLink{}}
}

func (r *testRepo) Create(ctx context.Context, l CareLink) error {
	if l.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[l.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) Update(ctx context.Context, l CareLink) error {
	if l.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[l.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (CareLink, error) {
	l, ok := r.byID[id]
	if !ok {
		return CareLink{}, errRepoNotFound
	}
	return l, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientUserID string) ([]CareLink, error) {
	out := make([]CareLink, 0)
	for _, l := range r.byID {
		if l.PatientUserID == patientUserID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) ListByCaretaker(ctx context.Context, caretakerUserID string) ([]CareLink, error) {
	out := make([]CareLink, 0)
	for _, l := range r.byID {
		if l.CaretakerUserID == caretakerUserID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) GetActiveLink(ctx context.Context, patientUserID, caretakerUserID string) (CareLink, error) {
	var winner CareLink
	has := false

	for _, l := range r.byID {
		if l.PatientUserID != patientUserID {
			continue
		}
		if l.CaretakerUserID != caretakerUserID {
			continue
		}
		if l.Status != StatusActive {
			continue
		}

		if !has {
			winner = l
			has = true
			continue
		}
		if l.UpdatedAt.After(winner.UpdatedAt) {
			winner = l
			continue
		}
		if l.UpdatedAt.Equal(winner.UpdatedAt) && l.CreatedAt.After(winner.CreatedAt) {
			winner = l
		}
	}

	if !has {
		return CareLink{}, errRepoNotFound
	}
	return winner, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Invite_DefaultScopes_WhenEmpty(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	l, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          nil,
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if l.Status != StatusInvited {
		t.Fatalf("expected status invited, got %s", l.Status)
	}
	if l.CreatedAt != now || l.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt to be now")
	}
	// default: el paquete de monitoreo completo
	if !HasScope(l, ScopeMedsRead) || !HasScope(l, ScopeLogsRead) ||
		!HasScope(l, ScopeAdherenceRead) || !HasScope(l, ScopeFeedRead) {
		t.Fatalf("expected default monitoring scopes, got %#v", l.Scopes)
	}
	if HasScope(l, ScopeMedsManage) {
		t.Fatalf("meds:manage must not be part of the default bundle, got %#v", l.Scopes)
	}
}

func TestService_Invite_StrictScopes_RejectsUnknown(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	_, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          []Scope{ScopeLogsRead, Scope("bad:scope")},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Invite_RejectsSelfLink(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	_, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "user-1",
		CaretakerUserID: "user-1",
	})
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for self link, got %v", err)
	}
}

func TestService_Invite_Dedup_UpdatesSameLink(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now1 := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	now2 := now1.Add(5 * time.Minute)

	svc.now = func() time.Time { return now1 }
	l1, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          []Scope{ScopeLogsRead},
	})
	if err != nil {
		t.Fatalf("Invite #1 error: %v", err)
	}

	svc.now = func() time.Time { return now2 }
	l2, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          []Scope{ScopeLogsRead, ScopeMedsManage},
	})
	if err != nil {
		t.Fatalf("Invite #2 error: %v", err)
	}

	if l2.ID != l1.ID {
		t.Fatalf("expected same link ID (dedup), got %s vs %s", l1.ID, l2.ID)
	}
	if l2.UpdatedAt != now2 {
		t.Fatalf("expected UpdatedAt to change on reinvite")
	}
	if !HasScope(l2, ScopeMedsManage) || !HasScope(l2, ScopeLogsRead) {
		t.Fatalf("expected scopes updated, got %#v", l2.Scopes)
	}
}

func TestService_Accept_SetsActive_AndIdempotent(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now1 := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	now2 := now1.Add(2 * time.Minute)

	svc.now = func() time.Time { return now1 }
	l, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
	})
	if err != nil {
		t.Fatalf("Invite error: %v", err)
	}

	svc.now = func() time.Time { return now2 }
	accepted, err := svc.Accept(context.Background(), l.ID, "caretaker-1")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if accepted.Status != StatusActive {
		t.Fatalf("expected active, got %s", accepted.Status)
	}

	// idempotente
	accepted2, err := svc.Accept(context.Background(), l.ID, "caretaker-1")
	if err != nil {
		t.Fatalf("Accept #2 error: %v", err)
	}
	if accepted2.Status != StatusActive {
		t.Fatalf("expected active after idempotent accept, got %s", accepted2.Status)
	}
}

func TestService_Accept_WrongCaretaker_Forbidden(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	l, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
	})
	if err != nil {
		t.Fatalf("Invite error: %v", err)
	}

	if _, err := svc.Accept(context.Background(), l.ID, "caretaker-2"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Accept_LeavesOnlyOneActive_ForPatientAndCaretaker(t *testing.T) {
	// Si por data sucia existieran múltiples invites/activos, al aceptar
	// uno debe quedar exactamente 1 activo.
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	l1 := CareLink{
		ID:              "l1",
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          []Scope{ScopeLogsRead},
		Status:          StatusInvited,
		CreatedAt:       now.Add(-10 * time.Minute),
		UpdatedAt:       now.Add(-10 * time.Minute),
	}
	l2 := CareLink{
		ID:              "l2",
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
		Scopes:          []Scope{ScopeLogsRead},
		Status:          StatusInvited,
		CreatedAt:       now.Add(-5 * time.Minute),
		UpdatedAt:       now.Add(-5 * time.Minute),
	}
	_ = repo.Create(context.Background(), l1)
	_ = repo.Create(context.Background(), l2)

	if _, err := svc.Accept(context.Background(), "l2", "caretaker-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	activeCount := 0
	for _, l := range repo.byID {
		if l.PatientUserID == "patient-1" && l.CaretakerUserID == "caretaker-1" && l.Status == StatusActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly 1 active link, got %d", activeCount)
	}
}

func TestService_Revoke_Idempotent_AndOwnerOnly(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	l, err := svc.Invite(context.Background(), InviteInput{
		PatientUserID:   "patient-1",
		CaretakerUserID: "caretaker-1",
	})
	if err != nil {
		t.Fatalf("Invite error: %v", err)
	}
	if _, err := svc.Accept(context.Background(), l.ID, "caretaker-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	// solo el paciente puede revocar
	if _, err := svc.Revoke(context.Background(), l.ID, "caretaker-1"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for non-patient revoke, got %v", err)
	}

	revoked, err := svc.Revoke(context.Background(), l.ID, "patient-1")
	if err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if revoked.Status != StatusRevoked {
		t.Fatalf("expected revoked, got %s", revoked.Status)
	}
	if revoked.RevokedAt == nil {
		t.Fatalf("expected RevokedAt to be set")
	}

	// idempotente
	revoked2, err := svc.Revoke(context.Background(), l.ID, "patient-1")
	if err != nil {
		t.Fatalf("Revoke #2 error: %v", err)
	}
	if revoked2.Status != StatusRevoked {
		t.Fatalf("expected revoked after idempotent revoke, got %s", revoked2.Status)
	}

	// y el caretaker pierde el link activo
	if _, err := svc.GetActiveLink(context.Background(), "patient-1", "caretaker-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}
