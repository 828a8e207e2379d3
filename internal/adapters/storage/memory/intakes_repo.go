package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"med-adherence-tracker/internal/domain/intakes"
)

type intakeRepo struct {
	mu   sync.RWMutex
	byID map[string]intakes.IntakeLog
}

func NewIntakesRepo() intakes.Repository {
	return &intakeRepo{
		byID: make(map[string]intakes.IntakeLog),
	}
}

func (r *intakeRepo) Create(ctx context.Context, l intakes.IntakeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(l.ID) == "" {
		return errors.New("intake log id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return errors.New("intake log already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *intakeRepo) ListByMedication(ctx context.Context, medicationID string, filter intakes.ListFilter) ([]intakes.IntakeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]intakes.IntakeLog, 0)
	for _, l := range r.byID {
		if l.MedicationID != medicationID {
			continue
		}
		if !matchesFilter(l, filter) {
			continue
		}
		out = append(out, l)
	}
	return sortAndLimit(out, filter.Limit), nil
}

func (r *intakeRepo) ListByPatient(ctx context.Context, patientUserID string, filter intakes.ListFilter) ([]intakes.IntakeLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]intakes.IntakeLog, 0)
	for _, l := range r.byID {
		if l.PatientUserID != patientUserID {
			continue
		}
		if !matchesFilter(l, filter) {
			continue
		}
		out = append(out, l)
	}
	return sortAndLimit(out, filter.Limit), nil
}

func (r *intakeRepo) DeleteByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, l := range r.byID {
		if l.MedicationID == medicationID {
			delete(r.byID, id)
		}
	}
	return nil
}

// YYYY-MM-DD: comparación lexicográfica == cronológica
func matchesFilter(l intakes.IntakeLog, f intakes.ListFilter) bool {
	if f.Date != "" {
		return l.DateTaken == f.Date
	}
	if f.From != "" && l.DateTaken < f.From {
		return false
	}
	if f.To != "" && l.DateTaken > f.To {
		return false
	}
	return true
}

func sortAndLimit(out []intakes.IntakeLog, limit int) []intakes.IntakeLog {
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
