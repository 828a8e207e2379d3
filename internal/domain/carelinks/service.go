package carelinks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type InviteInput struct {
	PatientUserID   string
	CaretakerUserID string
	Scopes          []Scope
}

func (s *Service) Invite(ctx context.Context, in InviteInput) (CareLink, error) {
	patientID := strings.TrimSpace(in.PatientUserID)
	caretakerID := strings.TrimSpace(in.CaretakerUserID)

	if patientID == "" || caretakerID == "" {
		return CareLink{}, ErrInvalidInput
	}
	if patientID == caretakerID {
		return CareLink{}, ErrInvalidInput
	}

	// Scopes: si viene vacío, aplicamos el paquete de monitoreo estándar.
	// Si viene con valores, se validan estrictamente.
	var scopes []Scope
	var err error
	if len(in.Scopes) == 0 {
		scopes = []Scope{ScopeMedsRead, ScopeLogsRead, ScopeAdherenceRead, ScopeFeedRead}
	} else {
		scopes, err = normalizeScopesStrict(in.Scopes)
		if err != nil {
			return CareLink{}, err
		}
		if len(scopes) == 0 {
			return CareLink{}, ErrInvalidInput
		}
	}

	now := s.now()

	// 1) Buscar links existentes para (patientID, caretakerID)
	existing, allMatches, err := s.findLatestMatch(ctx, patientID, caretakerID)
	if err == nil && existing.ID != "" {
		// Si el "winner" está revoked, permitimos re-invitar creando uno nuevo.
		if existing.Status != StatusRevoked {
			// 2) Deduplicar: revocar cualquier otro link matching no-revoked
			_ = s.revokeOtherMatches(ctx, existing.ID, allMatches, now)

			// 3) Actualizar scopes del winner (permite "cambiar" scopes sin endpoint adicional)
			existing.Scopes = scopes
			existing.UpdatedAt = now

			if err := s.repo.Update(ctx, existing); err != nil {
				return CareLink{}, err
			}
			return existing, nil
		}
	}

	l := CareLink{
		ID:              uuid.NewString(),
		PatientUserID:   patientID,
		CaretakerUserID: caretakerID,
		Scopes:          scopes,
		Status:          StatusInvited,
		CreatedAt:       now,
		UpdatedAt:       now,
		RevokedAt:       nil,
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return CareLink{}, err
	}
	return l, nil
}

func (s *Service) Accept(ctx context.Context, linkID, caretakerUserID string) (CareLink, error) {
	linkID = strings.TrimSpace(linkID)
	caretakerUserID = strings.TrimSpace(caretakerUserID)

	if linkID == "" || caretakerUserID == "" {
		return CareLink{}, ErrInvalidInput
	}

	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return CareLink{}, ErrNotFound
	}

	if l.CaretakerUserID != caretakerUserID {
		return CareLink{}, ErrForbidden
	}
	if l.Status == StatusRevoked {
		return CareLink{}, ErrBadState
	}

	// Idempotente
	if l.Status == StatusActive {
		return l, nil
	}
	if l.Status != StatusInvited {
		return CareLink{}, ErrBadState
	}

	now := s.now()
	l.Status = StatusActive
	l.UpdatedAt = now

	if err := s.repo.Update(ctx, l); err != nil {
		return CareLink{}, err
	}

	// Por data sucia podría haber más de un link para el par: al aceptar
	// uno, el resto queda revocado.
	if matches, _, ferr := s.allMatches(ctx, l.PatientUserID, caretakerUserID); ferr == nil {
		_ = s.revokeOtherMatches(ctx, l.ID, matches, now)
	}

	return l, nil
}

func (s *Service) Revoke(ctx context.Context, linkID, patientUserID string) (CareLink, error) {
	linkID = strings.TrimSpace(linkID)
	patientUserID = strings.TrimSpace(patientUserID)

	if linkID == "" || patientUserID == "" {
		return CareLink{}, ErrInvalidInput
	}

	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return CareLink{}, ErrNotFound
	}

	if l.PatientUserID != patientUserID {
		return CareLink{}, ErrForbidden
	}

	// Idempotente
	if l.Status == StatusRevoked {
		return l, nil
	}

	now := s.now()
	l.Status = StatusRevoked
	l.UpdatedAt = now
	l.RevokedAt = &now

	if err := s.repo.Update(ctx, l); err != nil {
		return CareLink{}, err
	}
	return l, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientUserID string) ([]CareLink, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientUserID)
}

func (s *Service) ListByCaretaker(ctx context.Context, caretakerUserID string) ([]CareLink, error) {
	caretakerUserID = strings.TrimSpace(caretakerUserID)
	if caretakerUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByCaretaker(ctx, caretakerUserID)
}

func (s *Service) GetActiveLink(ctx context.Context, patientUserID, caretakerUserID string) (CareLink, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	caretakerUserID = strings.TrimSpace(caretakerUserID)

	if patientUserID == "" || caretakerUserID == "" {
		return CareLink{}, ErrInvalidInput
	}
	l, err := s.repo.GetActiveLink(ctx, patientUserID, caretakerUserID)
	if err != nil {
		return CareLink{}, ErrNotFound
	}
	return l, nil
}

// HasScope valida si el link incluye un scope.
func HasScope(l CareLink, scope Scope) bool {
	for _, s := range l.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (s *Service) allMatches(ctx context.Context, patientID, caretakerID string) ([]CareLink, CareLink, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, CareLink{}, err
	}

	matches := make([]CareLink, 0)
	var winner CareLink
	hasWinner := false

	for _, l := range items {
		if l.PatientUserID != patientID || l.CaretakerUserID != caretakerID {
			continue
		}
		matches = append(matches, l)

		if !hasWinner || l.UpdatedAt.After(winner.UpdatedAt) {
			winner = l
			hasWinner = true
		}
	}

	return matches, winner, nil
}

func (s *Service) findLatestMatch(ctx context.Context, patientID, caretakerID string) (CareLink, []CareLink, error) {
	matches, winner, err := s.allMatches(ctx, patientID, caretakerID)
	if err != nil {
		return CareLink{}, nil, err
	}
	if winner.ID == "" {
		return CareLink{}, matches, ErrNotFound
	}
	return winner, matches, nil
}

func (s *Service) revokeOtherMatches(ctx context.Context, winnerID string, matches []CareLink, now time.Time) error {
	for _, l := range matches {
		if l.ID == "" || l.ID == winnerID {
			continue
		}
		if l.Status == StatusRevoked {
			continue
		}
		l.Status = StatusRevoked
		l.UpdatedAt = now
		l.RevokedAt = &now
		_ = s.repo.Update(ctx, l) // best-effort (MVP)
	}
	return nil
}

func normalizeScopesStrict(in []Scope) ([]Scope, error) {
	allowed := map[Scope]struct{}{
		ScopeMedsRead:      {},
		ScopeMedsManage:    {},
		ScopeLogsRead:      {},
		ScopeAdherenceRead: {},
		ScopeFeedRead:      {},
	}

	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))

	for _, raw := range in {
		s := Scope(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if _, ok := allowed[s]; !ok {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, nil
}
