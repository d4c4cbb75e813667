package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	"github.com/oksasatya/go-form-playground/pkg/response"
	"github.com/oksasatya/go-form-playground/pkg/validation"
)

type AvailabilityHandler struct {
	Checker application.UniquenessChecker
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewAvailabilityHandler(checker application.UniquenessChecker, timeout time.Duration, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Checker: checker, Timeout: timeout, Logger: logger}
}

type availabilityQuery struct {
	Email string `form:"email" json:"email" binding:"required"`
}

// Check answers one availability question without a session: syntax
// first, then the configured checker.
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if v := form.ValidateEmailSyntax(q.Email); !v.Valid {
		response.Error[any](c, http.StatusUnprocessableEntity, v.Message, map[string]string{"email": string(v.Kind)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	email := form.NormalizeEmail(q.Email)
	a, err := application.CheckNow(ctx, h.Checker, email)
	if err != nil {
		h.Logger.WithError(err).WithField("email", email).Warn("availability check failed")
		response.Error[any](c, http.StatusServiceUnavailable, "Could not verify email availability", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"email":        email,
		"availability": a,
		"available":    a == entity.AvailabilityAvailable,
	}, "availability", nil)
}
