package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/savannahealth/mamatoto/internal/container"
	handlers "github.com/savannahealth/mamatoto/internal/interface/http"
	"github.com/savannahealth/mamatoto/internal/interface/middleware"
	"github.com/savannahealth/mamatoto/pkg/session"
)

// PatientModule mounts the patient-records surface. Everything here
// requires an access token: FHIR Patient and Observation endpoints,
// patient document attachments, and the facility registry lookup.
type PatientModule struct {
	Patients   *handlers.PatientHandler
	Facilities *handlers.FacilityHandler
	Codec      *session.Codec
}

func NewPatientModule(patients *handlers.PatientHandler, facilities *handlers.FacilityHandler, codec *session.Codec) *PatientModule {
	return &PatientModule{Patients: patients, Facilities: facilities, Codec: codec}
}

func (m *PatientModule) Register(rg *gin.RouterGroup) {
	authed := rg.Group("/")
	authed.Use(middleware.RequireAccess(m.Codec))
	authed.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(container.GetRedis(), 180, time.Minute, middleware.KeyByUserID(), nil),
	)

	fhirGroup := authed.Group("/fhir")
	{
		fhirGroup.POST("/Patient", m.Patients.CreatePatient)
		fhirGroup.GET("/Patient", m.Patients.SearchPatients)
		fhirGroup.GET("/Patient/:id", m.Patients.GetPatient)
		fhirGroup.DELETE("/Patient/:id", m.Patients.DeletePatient)

		fhirGroup.POST("/Observation", m.Patients.CreateObservation)
		fhirGroup.GET("/Observation", m.Patients.ListObservations)
	}

	authed.POST("/patients/:id/attachments", m.Patients.UploadAttachment)
	authed.GET("/patients/:id/attachments", m.Patients.ListAttachments)

	authed.GET("/facilities/:code", m.Facilities.GetByCode)
}
