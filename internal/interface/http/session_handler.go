package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/response"
	"github.com/oksasatya/go-form-playground/pkg/validation"
)

type SessionHandler struct {
	Sessions *application.SessionManager
	JWT      *helpers.JWTManager
	Logger   *logrus.Logger
	Cookies  *helpers.Manager
}

func NewSessionHandler(sessions *application.SessionManager, jwt *helpers.JWTManager, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *SessionHandler {
	return &SessionHandler{Sessions: sessions, JWT: jwt, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type fieldInputRequest struct {
	Value *string `json:"value" binding:"required"`
}

type goToRequest struct {
	Index *int `json:"index" binding:"required"`
}

type notifyRequest struct {
	Message string `json:"message" binding:"required,max=200"`
	Kind    string `json:"kind" binding:"omitempty,notekind"`
}

// Create starts a new playground session and hands out its cookie.
func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.Sessions.Create()
	if err != nil {
		h.Logger.WithError(err).Error("create session failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create session", nil)
		return
	}
	token, exp, err := h.JWT.GenerateSessionToken(s.ID)
	if err != nil {
		_ = h.Sessions.Close(s.ID)
		h.Logger.WithError(err).WithField("session_id", s.ID).Error("sign session token failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create session", nil)
		return
	}
	h.Cookies.SetSession(c, token, exp)
	response.Success(c, http.StatusCreated, s.Snapshot(), "session created", map[string]any{"expires_at": exp})
}

func (h *SessionHandler) Get(c *gin.Context) {
	s := middleware.SessionFrom(c)
	response.Success(c, http.StatusOK, s.Snapshot(), "session", nil)
}

// Input records a keystroke-level update of one field.
func (h *SessionHandler) Input(c *gin.Context) {
	s := middleware.SessionFrom(c)
	field := entity.Field(c.Param("field"))

	var req fieldInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := s.Input(field, *req.Value); err != nil {
		if errors.Is(err, application.ErrUnknownField) {
			response.Error[any](c, http.StatusNotFound, "unknown field", map[string]string{"field": string(field)})
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to update field", nil)
		return
	}
	response.Success(c, http.StatusOK, s.Snapshot(), "field updated", nil)
}

func (h *SessionHandler) Submit(c *gin.Context) {
	s := middleware.SessionFrom(c)
	ctx := application.WithClientIP(c.Request.Context(), middleware.ClientIP(c))

	u, err := s.Submit(ctx)
	if err != nil {
		var ve *form.ValidationError
		switch {
		case errors.As(err, &ve):
			response.Error[any](c, http.StatusUnprocessableEntity, "Please fix the errors in the form", ve.Details())
		case errors.Is(err, application.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, "email already registered", map[string]string{"email": "This email is already registered"})
		case errors.Is(err, application.ErrSubmitInProgress):
			response.Error[any](c, http.StatusConflict, "form already submitted", nil)
		default:
			h.Logger.WithError(err).WithField("session_id", s.ID).Error("submit failed")
			response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		}
		return
	}

	var meta map[string]any
	if u != nil {
		meta = map[string]any{"user_id": u.ID}
	}
	response.Success(c, http.StatusOK, s.Snapshot(), "form submitted", meta)
}

func (h *SessionHandler) Next(c *gin.Context) {
	s := middleware.SessionFrom(c)
	tr := s.Next()
	response.Success(c, http.StatusOK, s.Snapshot(), "slide changed", map[string]any{"transition": tr})
}

func (h *SessionHandler) Prev(c *gin.Context) {
	s := middleware.SessionFrom(c)
	tr := s.Prev()
	response.Success(c, http.StatusOK, s.Snapshot(), "slide changed", map[string]any{"transition": tr})
}

func (h *SessionHandler) GoTo(c *gin.Context) {
	s := middleware.SessionFrom(c)
	var req goToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	tr := s.GoTo(*req.Index)
	response.Success(c, http.StatusOK, s.Snapshot(), "slide changed", map[string]any{"transition": tr})
}

func (h *SessionHandler) Notify(c *gin.Context) {
	s := middleware.SessionFrom(c)
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	n := s.Notify(req.Message, entity.ParseNotificationKind(req.Kind))
	response.Success(c, http.StatusCreated, n, "notification posted", nil)
}

func (h *SessionHandler) Dismiss(c *gin.Context) {
	s := middleware.SessionFrom(c)
	s.Dismiss()
	response.Success(c, http.StatusOK, s.Snapshot(), "notification dismissed", nil)
}

// Close ends the session and clears its cookie.
func (h *SessionHandler) Close(c *gin.Context) {
	s := middleware.SessionFrom(c)
	if err := h.Sessions.Close(s.ID); err != nil && !errors.Is(err, application.ErrSessionNotFound) {
		response.Error[any](c, http.StatusInternalServerError, "failed to close session", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"closed": true}, "session closed", nil)
}
