package router

import (
	"github.com/savannahealth/mamatoto/internal/application"
	"github.com/savannahealth/mamatoto/internal/container"
	pginfra "github.com/savannahealth/mamatoto/internal/infrastructure/postgres"
	handlers "github.com/savannahealth/mamatoto/internal/interface/http"
	"github.com/savannahealth/mamatoto/internal/router/modules"
)

func buildAuthModule() Module {
	users := pginfra.NewUserRepository(container.GetPGPool())
	facilities := pginfra.NewFacilityRepository(container.GetPGPool())

	// A nil *RabbitPublisher must stay a nil interface so the service's
	// mail-disabled check works.
	var mail application.EmailPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		mail = pub
	}

	svc := application.NewAuthService(
		users,
		facilities,
		container.GetProvisioner(),
		container.GetCodec(),
		mail,
		container.GetRedis(),
		container.GetLogger(),
		container.GetConfig(),
	)
	handler := handlers.NewAuthHandler(svc, container.GetLogger())
	return modules.NewAuthModule(handler, container.GetCodec())
}

func buildPatientModule() Module {
	pool := container.GetPGPool()
	cfg := container.GetConfig()

	svc := application.NewPatientService(
		pginfra.NewPatientRepository(pool),
		pginfra.NewObservationRepository(pool),
		pginfra.NewAttachmentRepository(pool),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetES(),
		cfg.ESPatientsIndex,
		container.GetLogger(),
	)
	patientHandler := handlers.NewPatientHandler(svc, container.GetLogger())
	facilityHandler := handlers.NewFacilityHandler(
		pginfra.NewFacilityRepository(pool),
		container.GetRedis(),
		container.GetLogger(),
	)
	return modules.NewPatientModule(patientHandler, facilityHandler, container.GetCodec())
}

// InitModules wires every feature module from the container singletons
// and registers them with the registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule(), buildPatientModule())
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
