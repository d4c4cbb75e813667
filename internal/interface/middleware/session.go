package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/response"
)

const (
	CtxSessionKey   = "session"
	CtxSessionIDKey = "sessionID"
)

// SessionResolver looks up a live playground session by id.
type SessionResolver interface {
	Get(id string) (*application.Session, error)
}

// Session reads the playground_session cookie, validates it, and injects the
// live session into the context.
func Session(jwt *helpers.JWTManager, sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.SessionCookie)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing session", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseSessionToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid session token", err.Error())
			c.Abort()
			return
		}
		s, err := sessions.Get(claims.SessionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, application.ErrSessionNotFound) {
				status = http.StatusUnauthorized
			}
			response.Error[any](c, status, "session not found", nil)
			c.Abort()
			return
		}
		c.Set(CtxSessionKey, s)
		c.Set(CtxSessionIDKey, s.ID)
		c.Next()
	}
}

// SessionFrom returns the session injected by Session.
func SessionFrom(c *gin.Context) *application.Session {
	v, ok := c.Get(CtxSessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*application.Session)
	return s
}
