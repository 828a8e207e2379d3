package carelinks

import "context"

type Repository interface {
	Create(ctx context.Context, l CareLink) error
	Update(ctx context.Context, l CareLink) error
	GetByID(ctx context.Context, id string) (CareLink, error)
	ListByPatient(ctx context.Context, patientUserID string) ([]CareLink, error)
	ListByCaretaker(ctx context.Context, caretakerUserID string) ([]CareLink, error)
	GetActiveLink(ctx context.Context, patientUserID, caretakerUserID string) (CareLink, error)
}
