package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
)

type ObservationRepository struct {
	pool *pgxpool.Pool
}

func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

func (r *ObservationRepository) Create(ctx context.Context, o *entity.Observation) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO observations (patient_id, code, display, value_numeric,
			value_string, unit, effective_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id, created_at
	`, o.PatientID, o.Code, o.Display, o.ValueNumeric, o.ValueString, o.Unit, o.EffectiveAt)
	return row.Scan(&o.ID, &o.CreatedAt)
}

func (r *ObservationRepository) ListByPatient(ctx context.Context, patientID, code string) ([]entity.Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, code, display, value_numeric, value_string, unit,
			effective_at, created_at
		FROM observations
		WHERE patient_id = $1 AND ($2 = '' OR code = $2)
		ORDER BY effective_at ASC
	`, patientID, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Observation{}
	for rows.Next() {
		var o entity.Observation
		var valueString, unit *string
		if err := rows.Scan(&o.ID, &o.PatientID, &o.Code, &o.Display, &o.ValueNumeric,
			&valueString, &unit, &o.EffectiveAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.ValueString = deref(valueString)
		o.Unit = deref(unit)
		out = append(out, o)
	}
	return out, rows.Err()
}

var _ repository.ObservationRepository = (*ObservationRepository)(nil)

type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *entity.Attachment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO attachments (patient_id, url, content_type, title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, a.PatientID, a.URL, a.ContentType, a.Title)
	return row.Scan(&a.ID, &a.CreatedAt)
}

func (r *AttachmentRepository) ListByPatient(ctx context.Context, patientID string) ([]entity.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, url, content_type, title, created_at
		FROM attachments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Attachment{}
	for rows.Next() {
		var a entity.Attachment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.URL, &a.ContentType, &a.Title, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ repository.AttachmentRepository = (*AttachmentRepository)(nil)
