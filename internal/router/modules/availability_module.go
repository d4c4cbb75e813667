package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-form-playground/internal/container"
	handlers "github.com/oksasatya/go-form-playground/internal/interface/http"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
)

type AvailabilityModule struct {
	Handler *handlers.AvailabilityHandler
}

func NewAvailabilityModule(h *handlers.AvailabilityHandler) *AvailabilityModule {
	return &AvailabilityModule{Handler: h}
}

func (m *AvailabilityModule) Name() string { return "availability" }

func (m *AvailabilityModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/emails/availability", rl, m.Handler.Check)
}
