package modules

import (
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/container"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
	"github.com/oksasatya/go-form-playground/pkg/response"
)

type DebugModule struct {
	Sessions *application.SessionManager
}

func NewDebugModule(sessions *application.SessionManager) *DebugModule {
	return &DebugModule{Sessions: sessions}
}

func (m *DebugModule) Name() string { return "debug" }

// Register exposes expvar (sessions_active, checks_started, checks_stale) and
// the live session count, rate-limited per IP except for private addresses.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	rg.GET("/debug/sessions", rl, m.sessions)
}

func (m *DebugModule) sessions(c *gin.Context) {
	live := 0
	if m.Sessions != nil {
		live = m.Sessions.Len()
	}
	response.Success(c, http.StatusOK, gin.H{"live": live}, "ok", nil)
}
