package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

const (
	maxNameLen         = 100
	maxDosageLen       = 50
	maxInstructionsLen = 500
)

// LogPurger borra los intake logs de una medicación. Interfaz chica para
// no importar el módulo de intakes desde acá (misma razón que OwnerOf).
type LogPurger interface {
	DeleteByMedication(ctx context.Context, medicationID string) error
}

type Service struct {
	repo   Repository
	purger LogPurger
	now    func() time.Time
}

func NewService(repo Repository, purger LogPurger) *Service {
	return &Service{
		repo:   repo,
		purger: purger,
		now:    time.Now,
	}
}

type CreateInput struct {
	Name         string
	Dosage       string
	Frequency    string
	Instructions string
}

func (s *Service) Create(ctx context.Context, patientUserID string, in CreateInput) (Medication, error) {
	if strings.TrimSpace(patientUserID) == "" {
		return Medication{}, ErrInvalidInput
	}

	name := strings.TrimSpace(in.Name)
	dosage := strings.TrimSpace(in.Dosage)
	frequency := strings.TrimSpace(in.Frequency)
	instructions := strings.TrimSpace(in.Instructions)

	if name == "" || len(name) > maxNameLen {
		return Medication{}, ErrInvalidInput
	}
	if dosage == "" || len(dosage) > maxDosageLen {
		return Medication{}, ErrInvalidInput
	}
	if frequency == "" {
		return Medication{}, ErrInvalidInput
	}
	if len(instructions) > maxInstructionsLen {
		return Medication{}, ErrInvalidInput
	}

	now := s.now()
	m := Medication{
		ID:            uuid.NewString(),
		PatientUserID: patientUserID,
		Name:          name,
		Dosage:        dosage,
		Frequency:     frequency,
		Instructions:  instructions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Name         *string
	Dosage       *string
	Frequency    *string
	Instructions *string
}

// Update edita nombre/dosis/frecuencia/instrucciones. Editar la frecuencia
// NO reescribe cómputos históricos ya reportados: la adherencia se deriva
// en cada lectura a partir del estado vigente.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" || len(v) > maxNameLen {
			return Medication{}, ErrInvalidInput
		}
		m.Name = v
	}
	if in.Dosage != nil {
		v := strings.TrimSpace(*in.Dosage)
		if v == "" || len(v) > maxDosageLen {
			return Medication{}, ErrInvalidInput
		}
		m.Dosage = v
	}
	if in.Frequency != nil {
		v := strings.TrimSpace(*in.Frequency)
		if v == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Frequency = v
	}
	if in.Instructions != nil {
		v := strings.TrimSpace(*in.Instructions)
		if len(v) > maxInstructionsLen {
			return Medication{}, ErrInvalidInput
		}
		m.Instructions = v
	}

	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// Delete borra la medicación y cascadea el borrado de sus logs.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.purger != nil {
		if err := s.purger.DeleteByMedication(ctx, id); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientUserID string) ([]Medication, error) {
	return s.repo.ListByPatient(ctx, patientUserID)
}
