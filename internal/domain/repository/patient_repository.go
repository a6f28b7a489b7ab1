package repository

import (
	"context"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

// PatientRepository defines database operations on patient records.
type PatientRepository interface {
	Create(ctx context.Context, p *entity.Patient) error
	GetByID(ctx context.Context, id string) (*entity.Patient, error)
	// List returns patients ordered by creation time, newest first.
	List(ctx context.Context, limit int) ([]entity.Patient, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.Patient, error)
	Delete(ctx context.Context, id string) error
}

// ObservationRepository persists clinical observations.
type ObservationRepository interface {
	Create(ctx context.Context, o *entity.Observation) error
	// ListByPatient returns observations for a patient, optionally filtered
	// by code, ordered by effective time ascending.
	ListByPatient(ctx context.Context, patientID, code string) ([]entity.Observation, error)
}

// AttachmentRepository persists patient document metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, a *entity.Attachment) error
	ListByPatient(ctx context.Context, patientID string) ([]entity.Attachment, error)
}
