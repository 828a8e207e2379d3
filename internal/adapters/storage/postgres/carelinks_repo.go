package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"med-adherence-tracker/internal/domain/carelinks"
)

type CareLinksRepo struct {
	db *sql.DB
}

func NewCareLinksRepo(db *sql.DB) *CareLinksRepo {
	return &CareLinksRepo{db: db}
}

func (r *CareLinksRepo) Create(ctx context.Context, l carelinks.CareLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_links (
			id, patient_user_id, caretaker_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		l.ID,
		l.PatientUserID,
		l.CaretakerUserID,
		scopesToTextArray(l.Scopes),
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
		toNullTime(l.RevokedAt),
	)
	return err
}

func (r *CareLinksRepo) Update(ctx context.Context, l carelinks.CareLink) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_links
		SET
			scopes = $2,
			status = $3,
			updated_at = $4,
			revoked_at = $5
		WHERE id = $1
	`,
		l.ID,
		scopesToTextArray(l.Scopes),
		string(l.Status),
		l.UpdatedAt,
		toNullTime(l.RevokedAt),
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

func (r *CareLinksRepo) GetByID(ctx context.Context, id string) (carelinks.CareLink, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carelinks.CareLink{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, patient_user_id, caretaker_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM care_links
		WHERE id = $1
	`, id)

	return scanCareLink(row)
}

func (r *CareLinksRepo) ListByPatient(ctx context.Context, patientUserID string) ([]carelinks.CareLink, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	if patientUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, patient_user_id, caretaker_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM care_links
		WHERE patient_user_id = $1
		ORDER BY created_at ASC
	`, patientUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCareLinks(rows)
}

func (r *CareLinksRepo) ListByCaretaker(ctx context.Context, caretakerUserID string) ([]carelinks.CareLink, error) {
	caretakerUserID = strings.TrimSpace(caretakerUserID)
	if caretakerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, patient_user_id, caretaker_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM care_links
		WHERE caretaker_user_id = $1
		ORDER BY updated_at DESC
	`, caretakerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCareLinks(rows)
}

func (r *CareLinksRepo) GetActiveLink(ctx context.Context, patientUserID, caretakerUserID string) (carelinks.CareLink, error) {
	patientUserID = strings.TrimSpace(patientUserID)
	caretakerUserID = strings.TrimSpace(caretakerUserID)
	if patientUserID == "" || caretakerUserID == "" {
		return carelinks.CareLink{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, patient_user_id, caretaker_user_id,
			scopes, status,
			created_at, updated_at, revoked_at
		FROM care_links
		WHERE patient_user_id = $1
		  AND caretaker_user_id = $2
		  AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, patientUserID, caretakerUserID)

	return scanCareLink(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCareLink(row rowScanner) (carelinks.CareLink, error) {
	var l carelinks.CareLink
	var status string
	var scopes []string
	var revokedAt sql.NullTime

	if err := row.Scan(
		&l.ID,
		&l.PatientUserID,
		&l.CaretakerUserID,
		&scopes,
		&status,
		&l.CreatedAt,
		&l.UpdatedAt,
		&revokedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return carelinks.CareLink{}, ErrNotFound
		}
		return carelinks.CareLink{}, err
	}

	l.Status = carelinks.Status(status)
	l.Scopes = textArrayToScopes(scopes)
	if revokedAt.Valid {
		t := revokedAt.Time
		l.RevokedAt = &t
	}

	return l, nil
}

func scanCareLinks(rows *sql.Rows) ([]carelinks.CareLink, error) {
	out := make([]carelinks.CareLink, 0)
	for rows.Next() {
		l, err := scanCareLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// helpers
func scopesToTextArray(in []carelinks.Scope) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func textArrayToScopes(in []string) []carelinks.Scope {
	if len(in) == 0 {
		return []carelinks.Scope{}
	}
	out := make([]carelinks.Scope, 0, len(in))
	for _, s := range in {
		out = append(out, carelinks.Scope(s))
	}
	return out
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
