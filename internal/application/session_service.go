package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSubmitInProgress = errors.New("form already submitted")
)

const (
	msgFixErrors        = "Please fix the errors in the form"
	msgSubmitted        = "Form submitted successfully!"
	msgRegistrationFail = "Registration failed, please try again"
)

// SessionConfig is shared by every session a manager creates.
type SessionConfig struct {
	Clock     clock.Clock
	Checker   UniquenessChecker
	Slides    []entity.Slide
	Registrar Registrar
	Logger    *logrus.Logger

	Engine            EngineOptions
	NotificationDwell time.Duration
	ResetDelay        time.Duration
}

// SessionSnapshot is everything a page needs to render.
type SessionSnapshot struct {
	ID           string               `json:"id"`
	Form         entity.FormSnapshot  `json:"form"`
	Carousel     entity.CarouselState `json:"carousel"`
	Notification *entity.Notification `json:"notification"`
	Submitted    bool                 `json:"submitted"`
}

// Session is one playground page: a form, a carousel and a notification
// slot. Components report changes through a single OnChange hook.
type Session struct {
	ID string

	clock      clock.Clock
	logger     *logrus.Logger
	registrar  Registrar
	resetDelay time.Duration

	engine   *ValidationEngine
	carousel *CarouselController
	notifier *NotificationScheduler

	mu         sync.Mutex
	submitting bool
	submitted  bool
	resetTimer clock.Timer
	lastSeen   time.Time
	closed     bool
	onChange   func(SessionSnapshot)
}

func NewSession(id string, cfg SessionConfig) (*Session, error) {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = helpers.NopLogger()
	}
	carousel, err := NewCarouselController(cfg.Slides)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:         id,
		clock:      c,
		logger:     logger,
		registrar:  cfg.Registrar,
		resetDelay: cfg.ResetDelay,
		engine:     NewValidationEngine(c, cfg.Checker, logger, cfg.Engine),
		carousel:   carousel,
		notifier:   NewNotificationScheduler(c, cfg.NotificationDwell),
		lastSeen:   c.Now(),
	}
	s.engine.OnChange(func(entity.FormSnapshot) { s.changed() })
	s.carousel.OnChange(func(entity.CarouselState) { s.changed() })
	s.notifier.OnChange(func(*entity.Notification) { s.changed() })
	return s, nil
}

// OnChange installs the render hook. It runs on whichever goroutine caused
// the change, timers included.
func (s *Session) OnChange(fn func(SessionSnapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) changed() {
	s.mu.Lock()
	fn, closed := s.onChange, s.closed
	s.mu.Unlock()
	if fn == nil || closed {
		return
	}
	fn(s.Snapshot())
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
}

// LastSeen is the time of the last user action.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) Input(field entity.Field, value string) error {
	s.touch()
	return s.engine.OnFieldInput(field, value)
}

// Submit releases the form. Only one submit runs at a time; others get
// ErrSubmitInProgress until it fails or the reset delay has passed. On
// failure an error notification is posted and the returned error lists the
// offending fields. On success the registrar,
// if any, stores the registration, and after the reset delay the form is
// cleared and a success notification is posted.
func (s *Session) Submit(ctx context.Context) (*entity.User, error) {
	s.touch()
	s.mu.Lock()
	if s.submitting || s.submitted {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	s.submitting = true
	s.mu.Unlock()

	reg, err := s.engine.Submit()
	if err != nil {
		s.releaseSubmit()
		s.notifier.Post(msgFixErrors, entity.KindError)
		return nil, err
	}

	var user *entity.User
	if s.registrar != nil {
		user, err = s.registrar.Register(ctx, reg)
		if err != nil {
			s.releaseSubmit()
			msg := msgRegistrationFail
			if errors.Is(err, ErrEmailTaken) {
				msg = msgAlreadyTaken
			}
			s.notifier.Post(msg, entity.KindError)
			return nil, err
		}
	}

	s.mu.Lock()
	s.submitting = false
	if s.closed {
		s.mu.Unlock()
		return user, nil
	}
	s.submitted = true
	s.resetTimer = s.clock.AfterFunc(s.resetDelay, s.completeSubmit)
	s.mu.Unlock()

	s.logger.WithField("session_id", s.ID).Info("form submitted")
	s.changed()
	return user, nil
}

func (s *Session) releaseSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

func (s *Session) completeSubmit() {
	s.mu.Lock()
	if s.closed || !s.submitted {
		s.mu.Unlock()
		return
	}
	s.submitted = false
	s.resetTimer = nil
	s.mu.Unlock()

	s.engine.Reset()
	s.notifier.Post(msgSubmitted, entity.KindSuccess)
}

func (s *Session) Next() entity.Transition {
	s.touch()
	return s.carousel.Next()
}

func (s *Session) Prev() entity.Transition {
	s.touch()
	return s.carousel.Prev()
}

func (s *Session) GoTo(i int) entity.Transition {
	s.touch()
	return s.carousel.GoTo(i)
}

func (s *Session) Notify(message string, kind entity.NotificationKind) entity.Notification {
	s.touch()
	return s.notifier.Post(message, kind)
}

func (s *Session) Dismiss() {
	s.touch()
	s.notifier.DismissNow()
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	submitted := s.submitted
	s.mu.Unlock()

	snap := SessionSnapshot{
		ID:        s.ID,
		Form:      s.engine.Snapshot(),
		Carousel:  s.carousel.Snapshot(),
		Submitted: submitted,
	}
	if n, ok := s.notifier.Current(); ok {
		snap.Notification = &n
	}
	return snap
}

// Close stops every timer and pending check. The render hook is not called
// afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.mu.Unlock()

	s.engine.Close()
	s.notifier.Stop()
}

// SessionManager owns the live sessions of the HTTP API.
type SessionManager struct {
	cfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(cfg SessionConfig) *SessionManager {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = helpers.NopLogger()
	}
	return &SessionManager{cfg: cfg, sessions: make(map[string]*Session)}
}

func (m *SessionManager) Create() (*Session, error) {
	s, err := NewSession(uuid.NewString(), m.cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	sessionsActive.Add(1)
	m.cfg.Logger.WithField("session_id", s.ID).Debug("session created")
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	sessionsActive.Add(-1)
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than idle and returns how many.
func (m *SessionManager) Sweep(idle time.Duration) int {
	now := m.cfg.Clock.Now()
	var stale []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > idle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		sessionsActive.Add(-1)
	}
	if len(stale) > 0 {
		m.cfg.Logger.WithField("count", len(stale)).Info("idle sessions swept")
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep(idle)
		}
	}
}

// CloseAll closes every session, used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		sessionsActive.Add(-1)
	}
}
