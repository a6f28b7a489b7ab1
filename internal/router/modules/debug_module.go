package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/savannahealth/mamatoto/internal/container"
	"github.com/savannahealth/mamatoto/internal/interface/middleware"
)

// DebugModule exposes expvar counters for local inspection. Mounted only
// when debug metrics are enabled in config.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
