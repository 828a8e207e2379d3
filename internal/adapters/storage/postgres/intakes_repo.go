package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"med-adherence-tracker/internal/domain/intakes"
)

type IntakesRepo struct {
	db *sql.DB
}

func NewIntakesRepo(db *sql.DB) *IntakesRepo {
	return &IntakesRepo{db: db}
}

func (r *IntakesRepo) Create(ctx context.Context, l intakes.IntakeLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intake_logs (
			id, medication_id, patient_user_id,
			date_taken, recorded_at, image_url
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		l.ID,
		l.MedicationID,
		l.PatientUserID,
		l.DateTaken,
		l.RecordedAt,
		l.ImageURL,
	)
	return err
}

func (r *IntakesRepo) ListByMedication(ctx context.Context, medicationID string, filter intakes.ListFilter) ([]intakes.IntakeLog, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil, nil
	}
	return r.list(ctx, "medication_id", medicationID, filter)
}

func (r *IntakesRepo) ListByPatient(ctx context.Context, patientUserID string, filter intakes.ListFilter) ([]intakes.IntakeLog, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, nil
	}
	return r.list(ctx, "patient_user_id", patientUserID, filter)
}

// list arma el WHERE dinámico igual para ambas vistas; keyCol viene de un
// set fijo, nunca de input del usuario.
func (r *IntakesRepo) list(ctx context.Context, keyCol, keyVal string, filter intakes.ListFilter) ([]intakes.IntakeLog, error) {
	sb := strings.Builder{}
	sb.WriteString(`
		SELECT
			id, medication_id, patient_user_id,
			date_taken, recorded_at, image_url
		FROM intake_logs
		WHERE ` + keyCol + ` = $1
	`)

	args := []any{keyVal}
	argN := 2

	if filter.Date != "" {
		sb.WriteString(fmt.Sprintf(" AND date_taken = $%d", argN))
		args = append(args, filter.Date)
		argN++
	} else {
		if filter.From != "" {
			sb.WriteString(fmt.Sprintf(" AND date_taken >= $%d", argN))
			args = append(args, filter.From)
			argN++
		}
		if filter.To != "" {
			sb.WriteString(fmt.Sprintf(" AND date_taken <= $%d", argN))
			args = append(args, filter.To)
			argN++
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	if limit > 2000 {
		limit = 2000
	}

	sb.WriteString(" ORDER BY recorded_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]intakes.IntakeLog, 0)
	for rows.Next() {
		var l intakes.IntakeLog
		if err := rows.Scan(
			&l.ID,
			&l.MedicationID,
			&l.PatientUserID,
			&l.DateTaken,
			&l.RecordedAt,
			&l.ImageURL,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func (r *IntakesRepo) DeleteByMedication(ctx context.Context, medicationID string) error {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil
	}

	// cero filas no es error: la medicación puede no tener logs todavía
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM intake_logs
		WHERE medication_id = $1
	`, medicationID)
	return err
}
