package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/config"
	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
	"github.com/savannahealth/mamatoto/pkg/helpers"
	"github.com/savannahealth/mamatoto/pkg/mailer"
	"github.com/savannahealth/mamatoto/pkg/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

// EmailPublisher enqueues email jobs. Satisfied by helpers.RabbitPublisher.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuthService orchestrates login, registration and the password-reset
// flows against the credential store.
type AuthService struct {
	Users         repository.UserRepository
	Facilities    repository.FacilityRepository
	Practitioners *PractitionerProvisioner
	Codec         *session.Codec
	Mail          EmailPublisher
	Redis         *redis.Client
	Logger        *logrus.Logger
	Cfg           *config.Config
}

func NewAuthService(users repository.UserRepository, facilities repository.FacilityRepository,
	practitioners *PractitionerProvisioner, codec *session.Codec, mail EmailPublisher,
	rdb *redis.Client, logger *logrus.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		Users:         users,
		Facilities:    facilities,
		Practitioners: practitioners,
		Codec:         codec,
		Mail:          mail,
		Redis:         rdb,
		Logger:        logger,
		Cfg:           cfg,
	}
}

type LoginResult struct {
	Token   session.Token
	NewUser bool
}

// Login validates credentials and issues an access token. Unverified
// accounts are rejected before the password is checked so the caller can
// direct the user to the reset flow.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Verified {
		return nil, ErrNotVerified
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	tok, err := s.Codec.EncodeAccess(u.ID, u.Role)
	if err != nil {
		return nil, err
	}

	newUser := u.IsNewUser()
	if newUser {
		data := make(map[string]any, len(u.Data))
		for k, v := range u.Data {
			data[k] = v
		}
		data["newUser"] = false
		if err := s.Users.UpdateData(ctx, u.ID, data); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to clear newUser flag")
		}
	}
	return &LoginResult{Token: tok, NewUser: newUser}, nil
}

type RegisterInput struct {
	Email     string
	Names     string
	Role      string
	Password  string
	KMHFLCode string
	Phone     string
}

// Register creates an unverified user, provisions a practitioner identity
// for nurses in the background, and mails a password-set link. When no
// password is supplied a random one is generated; the caller never learns
// it and must go through the reset flow.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	role, ok := entity.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	password := in.Password
	if password == "" {
		var err error
		password, err = helpers.RandomPassword(18)
		if err != nil {
			return nil, err
		}
	}
	digest, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Email:        in.Email,
		Names:        in.Names,
		Phone:        in.Phone,
		Role:         role,
		Password:     digest,
		FacilityCode: in.KMHFLCode,
		Data:         map[string]any{"newUser": true},
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	// Provisioning runs in the background; its outcome is observed through
	// the provisioner's log and outcome channel, never by this request.
	if role == entity.RoleNurse && s.Practitioners != nil {
		s.Practitioners.Enqueue(u.ID, u.Names)
	}

	if err := s.issueResetToken(ctx, u, mailer.TemplateWelcome); err != nil {
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset issues a fresh reset token and mails a reset link.
// Unknown accounts are ignored so the endpoint never leaks whether an
// email is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, id string) error {
	u, err := s.Users.Find(ctx, email, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.Logger != nil {
				s.Logger.WithField("email", email).Info("password reset requested for unknown account")
			}
			return nil
		}
		return err
	}
	return s.issueResetToken(ctx, u, mailer.TemplateResetPassword)
}

// CompletePasswordReset replaces the password iff every precondition
// holds: the bearer token decodes valid with the reset purpose for this
// user, and it matches the stored, unexpired reset token. On success the
// token is cleared and the account marked verified.
func (s *AuthService) CompletePasswordReset(ctx context.Context, userID, rawToken, newPassword string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return resetError("unknown-user")
		}
		return err
	}

	res := s.Codec.Decode(rawToken)
	switch {
	case res.Status != session.Valid:
		return resetError(string(res.Status))
	case res.Claims.Purpose != session.PurposeReset:
		return resetError("wrong-purpose")
	case res.Claims.UserID != u.ID:
		return resetError("user-mismatch")
	case u.ResetToken == "" || u.ResetToken != rawToken:
		return resetError("no-pending-reset")
	case u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(time.Now()):
		return resetError("expired")
	}

	digest, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, u.ID, digest)
}

// Delete removes a user and returns the deleted record.
func (s *AuthService) Delete(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Profile returns the user behind a session plus the resolved facility
// name for non-administrators.
func (s *AuthService) Profile(ctx context.Context, userID string) (*entity.User, string, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}

	facilityName := ""
	if u.Role != entity.RoleAdministrator && u.FacilityCode != "" {
		name, err := s.facilityName(ctx, u.FacilityCode)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("kmhfl_code", u.FacilityCode).Warn("facility lookup failed")
			}
		} else {
			facilityName = name
		}
	}
	return u, facilityName, nil
}

func (s *AuthService) issueResetToken(ctx context.Context, u *entity.User, template string) error {
	tok, err := s.Codec.EncodeReset(u.ID)
	if err != nil {
		return err
	}
	if err := s.Users.SetResetToken(ctx, u.ID, tok.Value, tok.Expires); err != nil {
		return err
	}
	u.ResetToken = tok.Value
	u.ResetTokenExpiresAt = &tok.Expires
	s.sendResetEmail(ctx, u, tok, template)
	return nil
}

// sendResetEmail enqueues the email job. Dispatch failure never fails the
// calling flow; it is logged and the user can re-request a reset.
func (s *AuthService) sendResetEmail(ctx context.Context, u *entity.User, tok session.Token, template string) {
	if s.Mail == nil || (s.Cfg != nil && !s.Cfg.MailSendEnabled) {
		return
	}
	resetURL := fmt.Sprintf("%s/new-password?id=%s&token=%s",
		s.Cfg.WebBaseURL, u.ID, url.QueryEscape(tok.Value))
	job := mailer.EmailJob{
		To:       u.Email,
		Template: template,
		Data: map[string]any{
			"Names":         u.Names,
			"Email":         u.Email,
			"ResetURL":      resetURL,
			"AppName":       s.Cfg.AppName,
			"ExpiresAtText": tok.Expires.UTC().Format("02 January 2006, 15:04 MST"),
		},
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  u.ID,
			"template": template,
		}).Warn("failed to enqueue email job")
	}
}

func facilityCacheKey(code string) string {
	return "facility:name:" + code
}

func (s *AuthService) facilityName(ctx context.Context, code string) (string, error) {
	if s.Redis != nil {
		var name string
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, facilityCacheKey(code), &name); err == nil && ok {
			return name, nil
		}
	}
	f, err := s.Facilities.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if s.Redis != nil {
		_ = helpers.RedisSetJSON(ctx, s.Redis, facilityCacheKey(code), f.Name, time.Hour)
	}
	return f.Name, nil
}

func resetError(code string) error {
	return fmt.Errorf("%w (code: %s)", ErrResetTokenInvalid, code)
}
