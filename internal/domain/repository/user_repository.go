package repository

import (
	"context"
	"errors"
	"time"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// Find looks a user up by email and/or id; empty arguments are ignored.
	Find(ctx context.Context, email, id string) (*entity.User, error)
	// SetResetToken stores a reset token and its expiry on the user record.
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// SetPassword replaces the password digest, clears any pending reset
	// token and marks the account verified.
	SetPassword(ctx context.Context, id, digest string) error
	SetPractitionerID(ctx context.Context, id, practitionerID string) error
	UpdateData(ctx context.Context, id string, data map[string]any) error
	// Delete removes the user and returns the deleted record.
	Delete(ctx context.Context, id string) (*entity.User, error)
}

// FacilityRepository provides lookups against the facility registry.
type FacilityRepository interface {
	GetByCode(ctx context.Context, kmhflCode string) (*entity.Facility, error)
	Upsert(ctx context.Context, f *entity.Facility) error
}

// PractitionerRepository persists practitioner identities created for
// NURSE registrations.
type PractitionerRepository interface {
	Create(ctx context.Context, p *entity.Practitioner) error
}
