package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-form-playground/internal/container"
	handlers "github.com/oksasatya/go-form-playground/internal/interface/http"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

type SessionModule struct {
	Handler *handlers.SessionHandler
	JWT     *helpers.JWTManager
}

func NewSessionModule(h *handlers.SessionHandler, jwt *helpers.JWTManager) *SessionModule {
	return &SessionModule{Handler: h, JWT: jwt}
}

func (m *SessionModule) Name() string { return "session" }

func (m *SessionModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	rg.POST("/sessions",
		middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP()),
		m.Handler.Create,
	)

	// Keystrokes arrive one request each, so the per-session budget is generous.
	s := rg.Group("/session")
	s.Use(middleware.Session(m.JWT, m.Handler.Sessions))
	s.Use(middleware.RateLimit(rdb, 600, time.Minute, middleware.KeyBySession(), nil))
	{
		s.GET("", m.Handler.Get)
		s.DELETE("", m.Handler.Close)
		s.PUT("/fields/:field", m.Handler.Input)
		s.POST("/submit", m.Handler.Submit)
		s.POST("/carousel/next", m.Handler.Next)
		s.POST("/carousel/prev", m.Handler.Prev)
		s.POST("/carousel/goto", m.Handler.GoTo)
		s.POST("/notifications", m.Handler.Notify)
		s.DELETE("/notifications", m.Handler.Dismiss)
	}
}
