package medications

import "time"

// Medication representa una medicación registrada por un paciente.
// Frequency es texto libre ("Twice daily", "As needed"); la conversión a
// dosis por día vive en el paquete adherence y se recalcula en cada
// lectura, nunca se cachea junto al registro.
type Medication struct {
	ID            string
	PatientUserID string

	Name         string
	Dosage       string // "500mg", "2 pastillas"
	Frequency    string
	Instructions string

	CreatedAt time.Time
	UpdatedAt time.Time
}
