package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
)

const patientColumns = `id, first_name, last_name, other_names, birth_date, sex,
	phone, inpatient_number, facility_kmhfl_code, created_at, updated_at`

type PatientRepository struct {
	pool *pgxpool.Pool
}

func NewPatientRepository(pool *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Create(ctx context.Context, p *entity.Patient) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (first_name, last_name, other_names, birth_date, sex,
			phone, inpatient_number, facility_kmhfl_code)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		RETURNING id, created_at, updated_at
	`, p.FirstName, p.LastName, p.OtherNames, p.BirthDate, p.Sex,
		p.Phone, p.InpatientNumber, p.FacilityCode)
	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*entity.Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context, limit int) ([]entity.Patient, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+` FROM patients ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *PatientRepository) GetByIDs(ctx context.Context, ids []string) ([]entity.Patient, error) {
	if len(ids) == 0 {
		return []entity.Patient{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+` FROM patients WHERE id = ANY($1) ORDER BY created_at DESC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*entity.Patient, error) {
	p := &entity.Patient{}
	var otherNames, phone, inpatientNumber, facilityCode *string
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &otherNames, &p.BirthDate,
		&p.Sex, &phone, &inpatientNumber, &facilityCode, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.OtherNames = deref(otherNames)
	p.Phone = deref(phone)
	p.InpatientNumber = deref(inpatientNumber)
	p.FacilityCode = deref(facilityCode)
	return p, nil
}

func collectPatients(rows pgx.Rows) ([]entity.Patient, error) {
	out := []entity.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

var _ repository.PatientRepository = (*PatientRepository)(nil)
