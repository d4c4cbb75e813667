package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-form-playground/pkg/response"
)

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	// Required probes fail the whole check; optional ones are only reported,
	// a nil optional probe as "disabled".
	Required map[string]Probe
	Optional map[string]Probe
	Timeout  time.Duration
}

func NewHealthHandler(required, optional map[string]Probe, timeout time.Duration) *HealthHandler {
	return &HealthHandler{Required: required, Optional: optional, Timeout: timeout}
}

type healthReport struct {
	Checks     map[string]string `json:"checks"`
	Optional   map[string]string `json:"optional,omitempty"`
	Unhealthy  []string          `json:"unhealthy,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

func (h *HealthHandler) Check(c *gin.Context) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	start := time.Now()
	rep := healthReport{Checks: make(map[string]string, len(h.Required))}
	for name, probe := range h.Required {
		if err := probe(ctx); err != nil {
			rep.Checks[name] = err.Error()
			rep.Unhealthy = append(rep.Unhealthy, name)
			continue
		}
		rep.Checks[name] = "ok"
	}
	sort.Strings(rep.Unhealthy)
	if len(h.Optional) > 0 {
		rep.Optional = make(map[string]string, len(h.Optional))
		for name, probe := range h.Optional {
			rep.Optional[name] = runOptional(ctx, probe)
		}
	}
	rep.DurationMS = time.Since(start).Milliseconds()

	if len(rep.Unhealthy) > 0 {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", rep)
		return
	}
	response.Success(c, http.StatusOK, rep, "healthy", nil)
}

func runOptional(ctx context.Context, probe Probe) string {
	if probe == nil {
		return "disabled"
	}
	if err := probe(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
