package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/interface/middleware"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

// instantChecker reports addresses in taken as taken, everything else as
// available, synchronously.
type instantChecker map[string]bool

func (c instantChecker) Check(_ context.Context, email string, done application.CheckDone) {
	if c[email] {
		done(entity.AvailabilityTaken, nil)
		return
	}
	done(entity.AvailabilityAvailable, nil)
}

type testServer struct {
	engine *gin.Engine
	clock  *clock.Manual
	mgr    *application.SessionManager
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	c := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	checker := instantChecker{"taken@example.com": true}
	mgr := application.NewSessionManager(application.SessionConfig{
		Clock:   c,
		Checker: checker,
		Slides:  []entity.Slide{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Engine: application.EngineOptions{
			DebounceWindow: 500 * time.Millisecond,
			ShakeDuration:  400 * time.Millisecond,
		},
		NotificationDwell: 3 * time.Second,
		ResetDelay:        3 * time.Second,
	})
	t.Cleanup(mgr.CloseAll)

	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	sh := NewSessionHandler(mgr, jwt, helpers.NopLogger(), "", false)
	ah := NewAvailabilityHandler(checker, time.Second, helpers.NopLogger())

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	api := r.Group("/api")
	api.POST("/sessions", sh.Create)
	api.GET("/emails/availability", ah.Check)
	sess := api.Group("/session", middleware.Session(jwt, mgr))
	sess.GET("", sh.Get)
	sess.PUT("/fields/:field", sh.Input)
	sess.POST("/submit", sh.Submit)
	sess.POST("/carousel/next", sh.Next)
	sess.POST("/carousel/prev", sh.Prev)
	sess.POST("/carousel/goto", sh.GoTo)
	sess.POST("/notifications", sh.Notify)
	sess.DELETE("/notifications", sh.Dismiss)
	sess.DELETE("", sh.Close)

	return &testServer{engine: r, clock: c, mgr: mgr}
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) start(t *testing.T) application.SessionSnapshot {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookie {
			s.cookie = ck
		}
	}
	require.NotNil(t, s.cookie)
	var snap application.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestSession_RequiresCookie(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	s.cookie = &http.Cookie{Name: helpers.SessionCookie, Value: "garbage"}
	w, _ = s.do(t, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_RegistrationFlow(t *testing.T) {
	s := newTestServer(t)
	snap := s.start(t)
	assert.Equal(t, 1, s.mgr.Len())
	assert.Len(t, snap.Carousel.Indicators, 4)

	for field, value := range map[string]string{"name": "Jo", "email": "test@example.com", "password": "Aa1!aaaa"} {
		w, _ := s.do(t, http.MethodPut, "/api/session/fields/"+field, map[string]string{"value": value})
		require.Equal(t, http.StatusOK, w.Code, field)
	}

	_, env := s.do(t, http.MethodGet, "/api/session", nil)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Form.Checking)

	s.clock.Advance(500 * time.Millisecond)
	_, env = s.do(t, http.MethodGet, "/api/session", nil)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Form.Submittable)

	w, env := s.do(t, http.MethodPost, "/api/session/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, string(env.Error))
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Submitted)

	s.clock.Advance(3 * time.Second)
	_, env = s.do(t, http.MethodGet, "/api/session", nil)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.False(t, snap.Submitted)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "Form submitted successfully!", snap.Notification.Message)
}

func TestSession_SubmitInvalid(t *testing.T) {
	s := newTestServer(t)
	s.start(t)

	w, env := s.do(t, http.MethodPost, "/api/session/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Equal(t, "Name is required", details["name"])
	assert.Equal(t, "Email is required", details["email"])
	assert.Equal(t, "Password is required", details["password"])
}

func TestSession_FieldInputValidation(t *testing.T) {
	s := newTestServer(t)
	s.start(t)

	w, _ := s.do(t, http.MethodPut, "/api/session/fields/age", map[string]string{"value": "3"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := s.do(t, http.MethodPut, "/api/session/fields/name", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Error), "value")

	w, _ = s.do(t, http.MethodPut, "/api/session/fields/name", map[string]string{"value": ""})
	assert.Equal(t, http.StatusOK, w.Code, "clearing a field is a valid input")
}

func TestSession_Carousel(t *testing.T) {
	s := newTestServer(t)
	s.start(t)

	_, env := s.do(t, http.MethodPost, "/api/session/carousel/prev", nil)
	var snap application.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 3, snap.Carousel.Current)
	assert.Equal(t, entity.Backward, snap.Carousel.Direction)

	_, env = s.do(t, http.MethodPost, "/api/session/carousel/goto", map[string]int{"index": -3})
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 1, snap.Carousel.Current)

	w, _ := s.do(t, http.MethodPost, "/api/session/carousel/goto", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_Notifications(t *testing.T) {
	s := newTestServer(t)
	s.start(t)

	w, env := s.do(t, http.MethodPost, "/api/session/notifications", map[string]string{"message": "hi", "kind": "success"})
	require.Equal(t, http.StatusCreated, w.Code)
	var n entity.Notification
	require.NoError(t, json.Unmarshal(env.Data, &n))
	assert.Equal(t, "#4cc9f0", n.Color)

	w, env = s.do(t, http.MethodPost, "/api/session/notifications", map[string]string{"message": "hi", "kind": "warning"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Error), "kind")

	_, env = s.do(t, http.MethodDelete, "/api/session/notifications", nil)
	var snap application.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Nil(t, snap.Notification)
}

func TestSession_Close(t *testing.T) {
	s := newTestServer(t)
	s.start(t)

	w, _ := s.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.mgr.Len())

	w, _ = s.do(t, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAvailability(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query string
		code  int
		want  string
	}{
		{"email=taken@example.com", http.StatusOK, `"taken"`},
		{"email=Free@Example.com", http.StatusOK, `"available"`},
		{"email=nope", http.StatusUnprocessableEntity, "invalid_format"},
		{"", http.StatusBadRequest, "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w, _ := s.do(t, http.MethodGet, "/api/emails/availability?"+tt.query, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.want), w.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return context.DeadlineExceeded }

	tests := []struct {
		name     string
		required map[string]Probe
		code     int
		want     string
	}{
		{"all up", map[string]Probe{"postgres": ok, "redis": ok}, http.StatusOK, `"postgres":"ok"`},
		{"redis down", map[string]Probe{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, `"unhealthy":["redis"]`},
		{"nothing required", nil, http.StatusOK, `"elasticsearch":"disabled"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.required, map[string]Probe{"elasticsearch": nil, "rabbitmq": down}, time.Second)
			r := gin.New()
			r.GET("/health", h.Check)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
