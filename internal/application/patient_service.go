package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
	"github.com/savannahealth/mamatoto/pkg/helpers"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrStorageDisabled    = errors.New("object storage not configured")
	ErrInvalidObservation = errors.New("observation needs a numeric or string value")
)

// PatientService serves the FHIR-flavored patient-records surface.
type PatientService struct {
	Patients     repository.PatientRepository
	Observations repository.ObservationRepository
	Attachments  repository.AttachmentRepository
	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESIndex      string
	Logger       *logrus.Logger
}

func NewPatientService(patients repository.PatientRepository, observations repository.ObservationRepository,
	attachments repository.AttachmentRepository, gcs *storage.Client, gcsBucket string,
	es *elasticsearch.Client, esIndex string, logger *logrus.Logger) *PatientService {
	return &PatientService{
		Patients:     patients,
		Observations: observations,
		Attachments:  attachments,
		GCS:          gcs,
		GCSBucket:    gcsBucket,
		ES:           es,
		ESIndex:      esIndex,
		Logger:       logger,
	}
}

func (s *PatientService) Create(ctx context.Context, p *entity.Patient) (*entity.Patient, error) {
	if err := s.Patients.Create(ctx, p); err != nil {
		return nil, err
	}
	_ = s.indexPatient(ctx, p)
	return p, nil
}

func (s *PatientService) Get(ctx context.Context, id string) (*entity.Patient, error) {
	p, err := s.Patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns patients, going through Elasticsearch when a name query is
// given and the search backend is available. Search failures fall back to
// the plain listing so the patient list never breaks on a degraded ES.
func (s *PatientService) List(ctx context.Context, name string) ([]entity.Patient, error) {
	if name == "" || s.ES == nil || s.ESIndex == "" {
		return s.Patients.List(ctx, 100)
	}
	ids, err := s.searchPatientIDs(ctx, name, 50)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("patient search failed, falling back to listing")
		}
		return s.Patients.List(ctx, 100)
	}
	return s.Patients.GetByIDs(ctx, ids)
}

func (s *PatientService) Delete(ctx context.Context, id string) error {
	if err := s.Patients.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}
	s.deleteIndexed(ctx, id)
	return nil
}

// RecordObservation stores a clinical measurement for a patient. The
// effective time defaults to now.
func (s *PatientService) RecordObservation(ctx context.Context, o *entity.Observation) error {
	if o.ValueNumeric == nil && o.ValueString == "" {
		return ErrInvalidObservation
	}
	if _, err := s.Get(ctx, o.PatientID); err != nil {
		return err
	}
	if o.EffectiveAt.IsZero() {
		o.EffectiveAt = time.Now()
	}
	return s.Observations.Create(ctx, o)
}

func (s *PatientService) ListObservations(ctx context.Context, patientID, code string) ([]entity.Observation, error) {
	return s.Observations.ListByPatient(ctx, patientID, code)
}

// UploadAttachment stores a patient document in GCS and records its URL.
func (s *PatientService) UploadAttachment(ctx context.Context, patientID string, r io.Reader,
	filename, contentType, title string) (*entity.Attachment, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, ErrStorageDisabled
	}
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("patients", patientID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	a := &entity.Attachment{
		PatientID:   patientID,
		URL:         url,
		ContentType: contentType,
		Title:       title,
	}
	if err := s.Attachments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PatientService) ListAttachments(ctx context.Context, patientID string) ([]entity.Attachment, error) {
	return s.Attachments.ListByPatient(ctx, patientID)
}

func (s *PatientService) indexPatient(ctx context.Context, p *entity.Patient) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":          p.ID,
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"other_names": p.OtherNames,
		"birth_date":  p.BirthDate.Format("2006-01-02"),
		"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: p.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("patient_id", p.ID).Warn("patient index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("patient_id", p.ID).Warn("patient index response error")
	}
	return nil
}

func (s *PatientService) deleteIndexed(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("patient_id", id).Warn("patient index delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

func (s *PatientService) searchPatientIDs(ctx context.Context, q string, size int) ([]string, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"first_name^2", "last_name^2", "other_names", "id"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
