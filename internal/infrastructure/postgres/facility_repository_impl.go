package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
)

type FacilityRepository struct {
	pool *pgxpool.Pool
}

func NewFacilityRepository(pool *pgxpool.Pool) *FacilityRepository {
	return &FacilityRepository{pool: pool}
}

func (r *FacilityRepository) GetByCode(ctx context.Context, kmhflCode string) (*entity.Facility, error) {
	f := &entity.Facility{}
	var county *string
	row := r.pool.QueryRow(ctx, `
		SELECT kmhfl_code, name, county, created_at, updated_at
		FROM facilities
		WHERE kmhfl_code = $1
	`, kmhflCode)
	if err := row.Scan(&f.KMHFLCode, &f.Name, &county, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	f.County = deref(county)
	return f, nil
}

func (r *FacilityRepository) Upsert(ctx context.Context, f *entity.Facility) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO facilities (kmhfl_code, name, county)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (kmhfl_code) DO UPDATE
		SET name = EXCLUDED.name, county = EXCLUDED.county, updated_at = now()
		RETURNING created_at, updated_at
	`, f.KMHFLCode, f.Name, f.County)
	return row.Scan(&f.CreatedAt, &f.UpdatedAt)
}

var _ repository.FacilityRepository = (*FacilityRepository)(nil)

type PractitionerRepository struct {
	pool *pgxpool.Pool
}

func NewPractitionerRepository(pool *pgxpool.Pool) *PractitionerRepository {
	return &PractitionerRepository{pool: pool}
}

func (r *PractitionerRepository) Create(ctx context.Context, p *entity.Practitioner) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO practitioners (user_id, names)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, p.UserID, p.Names)
	return row.Scan(&p.ID, &p.CreatedAt)
}

var _ repository.PractitionerRepository = (*PractitionerRepository)(nil)
