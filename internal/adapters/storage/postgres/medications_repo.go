package postgres

import (
	"context"
	"database/sql"
	"strings"

	"med-adherence-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, patient_user_id,
			name, dosage, frequency, instructions,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		m.ID,
		m.PatientUserID,
		m.Name,
		m.Dosage,
		m.Frequency,
		m.Instructions,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $2,
			dosage = $3,
			frequency = $4,
			instructions = $5,
			updated_at = $6
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		m.Frequency,
		m.Instructions,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, patient_user_id,
			name, dosage, frequency, instructions,
			created_at, updated_at
		FROM medications
		WHERE id = $1
	`, id)

	var m medications.Medication
	if err := row.Scan(
		&m.ID,
		&m.PatientUserID,
		&m.Name,
		&m.Dosage,
		&m.Frequency,
		&m.Instructions,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, ErrNotFound
		}
		return medications.Medication{}, err
	}

	return m, nil
}

func (r *MedicationsRepo) ListByPatient(ctx context.Context, patientUserID string) ([]medications.Medication, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, patient_user_id,
			name, dosage, frequency, instructions,
			created_at, updated_at
		FROM medications
		WHERE patient_user_id = $1
		ORDER BY created_at ASC
	`, patientUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		var m medications.Medication
		if err := rows.Scan(
			&m.ID,
			&m.PatientUserID,
			&m.Name,
			&m.Dosage,
			&m.Frequency,
			&m.Instructions,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM medications
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
