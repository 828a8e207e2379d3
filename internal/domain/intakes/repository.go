package intakes

import "context"

type Repository interface {
	Create(ctx context.Context, l IntakeLog) error
	ListByMedication(ctx context.Context, medicationID string, filter ListFilter) ([]IntakeLog, error)
	ListByPatient(ctx context.Context, patientUserID string, filter ListFilter) ([]IntakeLog, error)
	DeleteByMedication(ctx context.Context, medicationID string) error
}

// ListFilter acota por fecha de toma. From/To son YYYY-MM-DD inclusive
// (comparación lexicográfica == cronológica con ese formato).
type ListFilter struct {
	From  string
	To    string
	Date  string // exacta; ignora From/To si viene
	Limit int
}
