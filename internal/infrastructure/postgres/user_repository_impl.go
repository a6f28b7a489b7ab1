package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
)

const userColumns = `id, email, names, phone, role, password, verified,
	facility_kmhfl_code, practitioner_id, reset_token, reset_token_expires_at,
	data, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.Data == nil {
		u.Data = map[string]any{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, names, phone, role, password, facility_kmhfl_code, data)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id, verified, created_at, updated_at
	`, u.Email, u.Names, u.Phone, u.Role, u.Password, u.FacilityCode, u.Data)

	if err := row.Scan(&u.ID, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getWhere(ctx, "id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getWhere(ctx, "email = $1", email)
}

func (r *UserRepository) Find(ctx context.Context, email, id string) (*entity.User, error) {
	switch {
	case email != "" && id != "":
		return r.getWhere(ctx, "email = $1 AND id = $2", email, id)
	case email != "":
		return r.GetByEmail(ctx, email)
	case id != "":
		return r.GetByID(ctx, id)
	default:
		return nil, repository.ErrNotFound
	}
}

func (r *UserRepository) getWhere(ctx context.Context, where string, args ...any) (*entity.User, error) {
	u := &entity.User{}
	var phone, facilityCode, practitionerID, resetToken *string

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	if err := row.Scan(&u.ID, &u.Email, &u.Names, &phone, &u.Role, &u.Password,
		&u.Verified, &facilityCode, &practitionerID, &resetToken,
		&u.ResetTokenExpiresAt, &u.Data, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Phone = deref(phone)
	u.FacilityCode = deref(facilityCode)
	u.PractitionerID = deref(practitionerID)
	u.ResetToken = deref(resetToken)
	return u, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token = $1, reset_token_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, token, expiresAt, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id, digest string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password = $1, reset_token = NULL, reset_token_expires_at = NULL,
		    verified = TRUE, updated_at = now()
		WHERE id = $2
	`, digest, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPractitionerID(ctx context.Context, id, practitionerID string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET practitioner_id = $1, updated_at = now() WHERE id = $2
	`, practitionerID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateData(ctx context.Context, id string, data map[string]any) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET data = $1, updated_at = now() WHERE id = $2
	`, data, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (*entity.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ repository.UserRepository = (*UserRepository)(nil)
