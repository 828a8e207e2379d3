package memory

import (
	"context"
	"errors"
	"sync"

	"med-adherence-tracker/internal/domain/carelinks"
)

type careLinkRepo struct {
	mu   sync.RWMutex
	byID map[string]carelinks.CareLink
}

func NewCareLinksRepo() carelinks.Repository {
	return &careLinkRepo{
		byID: make(map[string]carelinks.CareLink),
	}
}

func (r *careLinkRepo) Create(ctx context.Context, l carelinks.CareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		return errors.New("care link id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return errors.New("care link already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *careLinkRepo) Update(ctx context.Context, l carelinks.CareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		return errors.New("care link id required")
	}
	if _, exists := r.byID[l.ID]; !exists {
		return ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *careLinkRepo) GetByID(ctx context.Context, id string) (carelinks.CareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return carelinks.CareLink{}, ErrNotFound
	}
	return l, nil
}

func (r *careLinkRepo) ListByPatient(ctx context.Context, patientUserID string) ([]carelinks.CareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]carelinks.CareLink, 0)
	for _, l := range r.byID {
		if l.PatientUserID == patientUserID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *careLinkRepo) ListByCaretaker(ctx context.Context, caretakerUserID string) ([]carelinks.CareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]carelinks.CareLink, 0)
	for _, l := range r.byID {
		if l.CaretakerUserID == caretakerUserID {
			out = append(out, l)
		}
	}
	return out, nil
}

// Defensivo: si por data sucia existieran múltiples links activos,
// devolvemos el más reciente por UpdatedAt (y en empate, por CreatedAt).
func (r *careLinkRepo) GetActiveLink(ctx context.Context, patientUserID, caretakerUserID string) (carelinks.CareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var winner carelinks.CareLink
	has := false

	for _, l := range r.byID {
		if l.PatientUserID != patientUserID {
			continue
		}
		if l.CaretakerUserID != caretakerUserID {
			continue
		}
		if l.Status != carelinks.StatusActive {
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
		if l.UpdatedAt.Equal(winner.UpdatedAt) {
			if l.CreatedAt.After(winner.CreatedAt) {
				winner = l
			}
		}
	}

	if !has {
		return carelinks.CareLink{}, ErrNotFound
	}
	return winner, nil
}
