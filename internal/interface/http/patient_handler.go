package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/internal/application"
	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/pkg/fhir"
	"github.com/savannahealth/mamatoto/pkg/response"
	"github.com/savannahealth/mamatoto/pkg/validation"
)

// PatientHandler serves the FHIR-flavored patient endpoints. Resources
// and Bundles ride inside the standard envelope, so clients read
// data.entry for search results.
type PatientHandler struct {
	Svc    *application.PatientService
	Logger *logrus.Logger
}

func NewPatientHandler(svc *application.PatientService, logger *logrus.Logger) *PatientHandler {
	return &PatientHandler{Svc: svc, Logger: logger}
}

// CreatePatient POST /api/fhir/Patient
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var res fhir.Patient
	if err := c.ShouldBindJSON(&res); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid Patient resource", validation.ToDetails(err))
		return
	}
	p, err := patientFromResource(res)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	created, err := h.Svc.Create(c.Request.Context(), p)
	if err != nil {
		h.logError(c, err, "patient creation failed")
		response.Error(c, http.StatusInternalServerError, "could not create patient", nil)
		return
	}
	response.Success(c, http.StatusCreated, fhir.FromPatient(*created), "")
}

// GetPatient GET /api/fhir/Patient/:id
func (h *PatientHandler) GetPatient(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, application.ErrPatientNotFound):
		response.Error(c, http.StatusNotFound, "patient not found", nil)
		return
	case err != nil:
		h.logError(c, err, "patient lookup failed")
		response.Error(c, http.StatusInternalServerError, "could not load patient", nil)
		return
	}
	response.Success(c, http.StatusOK, fhir.FromPatient(*p), "")
}

// SearchPatients GET /api/fhir/Patient?name=...
func (h *PatientHandler) SearchPatients(c *gin.Context) {
	patients, err := h.Svc.List(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.logError(c, err, "patient listing failed")
		response.Error(c, http.StatusInternalServerError, "could not list patients", nil)
		return
	}
	resources := make([]interface{}, 0, len(patients))
	for _, p := range patients {
		resources = append(resources, fhir.FromPatient(p))
	}
	response.Success(c, http.StatusOK, fhir.NewSearchBundle(resources...), "")
}

// DeletePatient DELETE /api/fhir/Patient/:id
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, application.ErrPatientNotFound):
		response.Error(c, http.StatusNotFound, "patient not found", nil)
		return
	case err != nil:
		h.logError(c, err, "patient deletion failed")
		response.Error(c, http.StatusInternalServerError, "could not delete patient", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("id")}, "")
}

// CreateObservation POST /api/fhir/Observation
func (h *PatientHandler) CreateObservation(c *gin.Context) {
	var res fhir.Observation
	if err := c.ShouldBindJSON(&res); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid Observation resource", validation.ToDetails(err))
		return
	}
	o, err := observationFromResource(res)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	err = h.Svc.RecordObservation(c.Request.Context(), o)
	switch {
	case errors.Is(err, application.ErrPatientNotFound):
		response.Error(c, http.StatusNotFound, "patient not found", nil)
		return
	case errors.Is(err, application.ErrInvalidObservation):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	case err != nil:
		h.logError(c, err, "observation creation failed")
		response.Error(c, http.StatusInternalServerError, "could not record observation", nil)
		return
	}
	response.Success(c, http.StatusCreated, fhir.FromObservation(*o), "")
}

// ListObservations GET /api/fhir/Observation?patient=:id&code=...
// The FHIR-style subject=Patient/:id form is accepted as well.
func (h *PatientHandler) ListObservations(c *gin.Context) {
	patientID := c.Query("patient")
	if patientID == "" {
		patientID = subjectPatientID(c.Query("subject"))
	}
	if patientID == "" {
		response.Error(c, http.StatusBadRequest, "patient=<id> or subject=Patient/<id> query parameter is required", nil)
		return
	}

	observations, err := h.Svc.ListObservations(c.Request.Context(), patientID, c.Query("code"))
	if err != nil {
		h.logError(c, err, "observation listing failed")
		response.Error(c, http.StatusInternalServerError, "could not list observations", nil)
		return
	}
	resources := make([]interface{}, 0, len(observations))
	for _, o := range observations {
		resources = append(resources, fhir.FromObservation(o))
	}
	response.Success(c, http.StatusOK, fhir.NewSearchBundle(resources...), "")
}

// UploadAttachment POST /api/patients/:id/attachments (multipart)
func (h *PatientHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "multipart field 'file' is required", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.logError(c, err, "attachment open failed")
		response.Error(c, http.StatusInternalServerError, "could not read upload", nil)
		return
	}
	defer func() { _ = f.Close() }()

	a, err := h.Svc.UploadAttachment(c.Request.Context(), c.Param("id"), f,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), c.PostForm("title"))
	switch {
	case errors.Is(err, application.ErrPatientNotFound):
		response.Error(c, http.StatusNotFound, "patient not found", nil)
		return
	case errors.Is(err, application.ErrStorageDisabled):
		response.Error(c, http.StatusServiceUnavailable, "document storage is not configured", nil)
		return
	case err != nil:
		h.logError(c, err, "attachment upload failed")
		response.Error(c, http.StatusInternalServerError, "could not store attachment", nil)
		return
	}
	response.Success(c, http.StatusCreated, attachmentView(*a), "")
}

// ListAttachments GET /api/patients/:id/attachments
func (h *PatientHandler) ListAttachments(c *gin.Context) {
	if _, err := h.Svc.Get(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, application.ErrPatientNotFound) {
			response.Error(c, http.StatusNotFound, "patient not found", nil)
			return
		}
		h.logError(c, err, "patient lookup failed")
		response.Error(c, http.StatusInternalServerError, "could not load patient", nil)
		return
	}

	attachments, err := h.Svc.ListAttachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logError(c, err, "attachment listing failed")
		response.Error(c, http.StatusInternalServerError, "could not list attachments", nil)
		return
	}
	views := make([]attachmentProjection, 0, len(attachments))
	for _, a := range attachments {
		views = append(views, attachmentView(a))
	}
	response.Success(c, http.StatusOK, views, "")
}

type attachmentProjection struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType,omitempty"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func attachmentView(a entity.Attachment) attachmentProjection {
	return attachmentProjection{
		ID:          a.ID,
		PatientID:   a.PatientID,
		URL:         a.URL,
		ContentType: a.ContentType,
		Title:       a.Title,
		CreatedAt:   a.CreatedAt,
	}
}

func patientFromResource(res fhir.Patient) (*entity.Patient, error) {
	if len(res.Name) == 0 || len(res.Name[0].Given) == 0 || res.Name[0].Given[0] == "" {
		return nil, errors.New("Patient.name with at least one given name is required")
	}
	name := res.Name[0]
	p := &entity.Patient{
		FirstName: name.Given[0],
		LastName:  name.Family,
		Sex:       res.Gender,
	}
	if len(name.Given) > 1 {
		p.OtherNames = name.Given[1]
	}
	bd, err := time.Parse("2006-01-02", res.BirthDate)
	if err != nil {
		return nil, errors.New("Patient.birthDate must be YYYY-MM-DD")
	}
	p.BirthDate = bd
	for _, t := range res.Telecom {
		if t.System == "phone" {
			p.Phone = t.Value
		}
	}
	for _, id := range res.Identifier {
		switch id.System {
		case "inpatient-number":
			p.InpatientNumber = id.Value
		case "kmhfl-code":
			p.FacilityCode = id.Value
		}
	}
	return p, nil
}

func observationFromResource(res fhir.Observation) (*entity.Observation, error) {
	patientID := subjectPatientID(res.Subject.Reference)
	if patientID == "" {
		return nil, errors.New("Observation.subject must reference Patient/<id>")
	}
	if len(res.Code.Coding) == 0 || res.Code.Coding[0].Code == "" {
		return nil, errors.New("Observation.code with at least one coding is required")
	}
	coding := res.Code.Coding[0]

	o := &entity.Observation{
		PatientID:   patientID,
		Code:        coding.Code,
		Display:     coding.Display,
		ValueString: res.ValueString,
	}
	if o.Display == "" {
		o.Display = res.Code.Text
	}
	if res.ValueQuantity != nil {
		v := res.ValueQuantity.Value
		o.ValueNumeric = &v
		o.Unit = res.ValueQuantity.Unit
	}
	if res.EffectiveDateTime != "" {
		at, err := time.Parse(time.RFC3339, res.EffectiveDateTime)
		if err != nil {
			return nil, errors.New("Observation.effectiveDateTime must be RFC 3339")
		}
		o.EffectiveAt = at
	}
	return o, nil
}

func subjectPatientID(subject string) string {
	const prefix = "Patient/"
	if len(subject) > len(prefix) && subject[:len(prefix)] == prefix {
		return subject[len(prefix):]
	}
	return ""
}

func (h *PatientHandler) logError(c *gin.Context, err error, msg string) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
}
