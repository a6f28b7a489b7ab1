package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/internal/application"
	"github.com/savannahealth/mamatoto/internal/interface/middleware"
	"github.com/savannahealth/mamatoto/pkg/response"
	"github.com/savannahealth/mamatoto/pkg/session"
	"github.com/savannahealth/mamatoto/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Names     string `json:"names" binding:"required"`
	Role      string `json:"role" binding:"required"`
	Password  string `json:"password"`
	KMHFLCode string `json:"kmhflCode"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	ID    string `json:"id" binding:"omitempty,uuid"`
}

type newPasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
	ID       string `json:"id" binding:"required,uuid"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "email and password are required to login", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, application.ErrNotVerified):
		response.Error(c, http.StatusUnauthorized,
			"Kindly complete password reset or verify your account to proceed. Check reset instructions in your email.", nil)
		return
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "Incorrect email or password provided.", nil)
		return
	case err != nil:
		h.logError(c, err, "login failed")
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  response.StatusSuccess,
		"token":   res.Token.Value,
		"issued":  res.Token.Issued,
		"expires": res.Token.Expires,
		"newUser": res.NewUser,
	})
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid registration payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:     req.Email,
		Names:     req.Names,
		Role:      req.Role,
		Password:  req.Password,
		KMHFLCode: req.KMHFLCode,
		Phone:     req.Phone,
	})
	switch {
	case errors.Is(err, application.ErrInvalidRole):
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("Invalid role name *%s* provided", req.Role), nil)
		return
	case errors.Is(err, application.ErrDuplicateEmail):
		response.Error(c, http.StatusBadRequest, "User with the email provided already exists", nil)
		return
	case err != nil:
		h.logError(c, err, "registration failed")
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  response.StatusSuccess,
		"user":    u.Sanitized(),
		"message": fmt.Sprintf("Password reset instructions have been sent to your email, %s", u.Email),
	})
}

// ResetPassword POST /api/auth/reset-password
// Responds with the same generic success body whether or not the account
// exists, so the endpoint cannot be used to probe for registered emails.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid email value provided", validation.ToDetails(err))
		return
	}
	if req.Email == "" && req.ID == "" {
		response.Error(c, http.StatusBadRequest, "email or id is required", nil)
		return
	}

	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email, req.ID); err != nil {
		h.logError(c, err, "password reset request failed")
		response.Error(c, http.StatusInternalServerError, "could not process reset request", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  response.StatusSuccess,
		"message": "If the account exists, password reset instructions have been sent to the email on record",
	})
}

// NewPassword POST /api/auth/new-password (bearer reset token)
func (h *AuthHandler) NewPassword(c *gin.Context) {
	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "password and id are required", validation.ToDetails(err))
		return
	}

	token := middleware.BearerToken(c)
	err := h.Svc.CompletePasswordReset(c.Request.Context(), req.ID, token, req.Password)
	switch {
	case errors.Is(err, application.ErrResetTokenInvalid):
		response.Error(c, http.StatusUnauthorized, err.Error(), nil)
		return
	case err != nil:
		h.logError(c, err, "password reset completion failed")
		response.Error(c, http.StatusInternalServerError, "could not reset password", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  response.StatusSuccess,
		"message": "Password reset successfully",
	})
}

// Me GET /api/auth/me (bearer access token)
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.SessionClaims(c)
	if !ok || claims.Purpose != session.PurposeAccess {
		response.Error(c, http.StatusUnauthorized, "Invalid access token", nil)
		return
	}

	u, facilityName, err := h.Svc.Profile(c.Request.Context(), claims.UserID)
	switch {
	case errors.Is(err, application.ErrUserNotFound):
		response.Error(c, http.StatusUnauthorized, "Invalid access token", nil)
		return
	case err != nil:
		h.logError(c, err, "profile lookup failed")
		response.Error(c, http.StatusInternalServerError, "could not load profile", nil)
		return
	}

	proj := u.Sanitized()
	proj.FacilityName = facilityName
	response.Success(c, http.StatusOK, proj, "")
}

// DeleteUser DELETE /api/auth/users/:id
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	u, err := h.Svc.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, application.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	case err != nil:
		h.logError(c, err, "user deletion failed")
		response.Error(c, http.StatusInternalServerError, "could not delete user", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": response.StatusSuccess,
		"user":   u.Sanitized(),
	})
}

func (h *AuthHandler) logError(c *gin.Context, err error, msg string) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
}
