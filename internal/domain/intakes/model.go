package intakes

import "time"

// IntakeLog registra una toma de medicación en un día calendario.
// DateTaken es la fecha "de la toma" en formato YYYY-MM-DD, sin hora ni
// zona; RecordedAt es el instante en que se registró (lo que dispara las
// notificaciones del feed). Son cosas distintas a propósito.
// Un log nunca se edita; solo desaparece si se borra su medicación.
type IntakeLog struct {
	ID            string
	MedicationID  string
	PatientUserID string

	DateTaken  string // YYYY-MM-DD
	RecordedAt time.Time

	ImageURL string // opcional, foto de la toma
}
