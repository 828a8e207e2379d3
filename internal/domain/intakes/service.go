package intakes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"med-adherence-tracker/internal/domain/adherence"
)

var (
	ErrInvalidInput = errors.New("invalid input")
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

type CreateInput struct {
	DateTaken string // YYYY-MM-DD
	ImageURL  string // opcional
}

// Log registra una toma. No rechaza un segundo log para el mismo
// (medicación, fecha): el cálculo de adherencia deduplica por fecha, así
// que el doble submit no infla métricas.
func (s *Service) Log(ctx context.Context, patientUserID, medicationID string, in CreateInput) (IntakeLog, error) {
	if strings.TrimSpace(patientUserID) == "" {
		return IntakeLog{}, ErrInvalidInput
	}
	if strings.TrimSpace(medicationID) == "" {
		return IntakeLog{}, ErrInvalidInput
	}

	// En el write path la fecha malformada se rechaza de una; el
	// tratamiento tolerante de ErrDataFormat es solo para data ya
	// almacenada.
	d, err := adherence.ParseDay(in.DateTaken)
	if err != nil {
		return IntakeLog{}, ErrInvalidInput
	}

	l := IntakeLog{
		ID:            uuid.NewString(),
		MedicationID:  medicationID,
		PatientUserID: patientUserID,
		DateTaken:     d.String(),
		RecordedAt:    s.now(),
		ImageURL:      strings.TrimSpace(in.ImageURL),
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return IntakeLog{}, err
	}
	return l, nil
}

func (s *Service) ListByMedication(ctx context.Context, medicationID string, filter ListFilter) ([]IntakeLog, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMedication(ctx, medicationID, filter)
}

func (s *Service) ListByPatient(ctx context.Context, patientUserID string, filter ListFilter) ([]IntakeLog, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientUserID, filter)
}

// DeleteByMedication implementa medications.LogPurger (cascade al borrar
// una medicación).
func (s *Service) DeleteByMedication(ctx context.Context, medicationID string) error {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteByMedication(ctx, medicationID)
}
