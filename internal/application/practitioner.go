package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
)

// PractitionerOutcome reports the result of one provisioning attempt.
type PractitionerOutcome struct {
	UserID         string
	PractitionerID string
	Err            error
}

type provisionRequest struct {
	userID string
	names  string
}

// PractitionerProvisioner creates practitioner identities for NURSE
// registrations in the background. Each attempt's outcome is logged and
// published on the Outcomes channel; a slow or absent consumer never
// blocks provisioning.
type PractitionerProvisioner struct {
	practitioners repository.PractitionerRepository
	users         repository.UserRepository
	logger        *logrus.Logger
	requests      chan provisionRequest
	outcomes      chan PractitionerOutcome
	done          chan struct{}
}

func NewPractitionerProvisioner(practitioners repository.PractitionerRepository,
	users repository.UserRepository, logger *logrus.Logger) *PractitionerProvisioner {
	p := &PractitionerProvisioner{
		practitioners: practitioners,
		users:         users,
		logger:        logger,
		requests:      make(chan provisionRequest, 32),
		outcomes:      make(chan PractitionerOutcome, 32),
		done:          make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue schedules provisioning for a user. Non-blocking: when the queue
// is full the request is dropped with a log entry, and the user can be
// re-provisioned manually.
func (p *PractitionerProvisioner) Enqueue(userID, names string) {
	select {
	case p.requests <- provisionRequest{userID: userID, names: names}:
	default:
		if p.logger != nil {
			p.logger.WithField("user_id", userID).Warn("practitioner queue full, dropping request")
		}
	}
}

// Outcomes exposes provisioning results for observers (tests, metrics).
func (p *PractitionerProvisioner) Outcomes() <-chan PractitionerOutcome {
	return p.outcomes
}

// Close stops accepting requests and waits for in-flight work to finish.
func (p *PractitionerProvisioner) Close() {
	close(p.requests)
	<-p.done
}

func (p *PractitionerProvisioner) run() {
	defer close(p.done)
	for req := range p.requests {
		out := p.provision(req)
		if p.logger != nil {
			if out.Err != nil {
				p.logger.WithError(out.Err).WithField("user_id", out.UserID).Warn("practitioner provisioning failed")
			} else {
				p.logger.WithFields(logrus.Fields{
					"user_id":         out.UserID,
					"practitioner_id": out.PractitionerID,
				}).Info("practitioner provisioned")
			}
		}
		select {
		case p.outcomes <- out:
		default:
		}
	}
}

func (p *PractitionerProvisioner) provision(req provisionRequest) PractitionerOutcome {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pr := &entity.Practitioner{UserID: req.userID, Names: req.names}
	if err := p.practitioners.Create(ctx, pr); err != nil {
		return PractitionerOutcome{UserID: req.userID, Err: err}
	}
	if err := p.users.SetPractitionerID(ctx, req.userID, pr.ID); err != nil {
		return PractitionerOutcome{UserID: req.userID, Err: err}
	}
	return PractitionerOutcome{UserID: req.userID, PractitionerID: pr.ID}
}
