package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/savannahealth/mamatoto/internal/container"
	handlers "github.com/savannahealth/mamatoto/internal/interface/http"
	"github.com/savannahealth/mamatoto/internal/interface/middleware"
	"github.com/savannahealth/mamatoto/pkg/session"
)

// AuthModule mounts the account surface.
// Public: POST /api/auth/login, /api/auth/register, /api/auth/reset-password,
// DELETE /api/auth/users/:id.
// Reset-token bearer: POST /api/auth/new-password.
// Access bearer: GET /api/auth/me.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Codec   *session.Codec
}

func NewAuthModule(h *handlers.AuthHandler, codec *session.Codec) *AuthModule {
	return &AuthModule{Handler: h, Codec: codec}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")

	// Public with rate limiting. Login is the tightest since it is the
	// credential-guessing surface; resets are per IP and path.
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	registerLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	resetLimiter := middleware.RateLimit(container.GetRedis(), 20, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/reset-password", resetLimiter, m.Handler.ResetPassword)
	auth.DELETE("/users/:id", m.Handler.DeleteUser)

	// new-password accepts the mailed reset token, so only session
	// validity is enforced here; purpose checks live in the service.
	auth.POST("/new-password", middleware.RequireSession(m.Codec), resetLimiter, m.Handler.NewPassword)

	me := auth.Group("/")
	me.Use(middleware.RequireAccess(m.Codec))
	me.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		me.GET("/me", m.Handler.Me)
	}
}
