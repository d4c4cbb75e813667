package application

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/pkg/clock"
)

// NotificationScheduler shows one notification at a time. Posting replaces
// the live one and restarts the dwell timer; a timer belonging to a replaced
// notification never hides its successor.
type NotificationScheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	dwell    time.Duration
	current  *entity.Notification
	timer    clock.Timer
	gen      uint64
	onChange func(*entity.Notification)
}

func NewNotificationScheduler(c clock.Clock, dwell time.Duration) *NotificationScheduler {
	if c == nil {
		c = clock.New()
	}
	return &NotificationScheduler{clock: c, dwell: dwell}
}

// OnChange is called with the live notification, or nil once it is hidden.
func (s *NotificationScheduler) OnChange(fn func(*entity.Notification)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *NotificationScheduler) Post(message string, kind entity.NotificationKind) entity.Notification {
	s.mu.Lock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	now := s.clock.Now()
	n := entity.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		Color:     kind.Color(),
		PostedAt:  now,
		ExpiresAt: now.Add(s.dwell),
	}
	s.current = &n
	s.timer = s.clock.AfterFunc(s.dwell, func() { s.expire(gen) })
	fn := s.onChange
	s.mu.Unlock()

	out := n
	emit(fn, &out)
	return n
}

func (s *NotificationScheduler) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.timer = nil
	fn := s.onChange
	s.mu.Unlock()

	emit[*entity.Notification](fn, nil)
}

// DismissNow hides the live notification immediately.
func (s *NotificationScheduler) DismissNow() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.gen++
	s.current = nil
	fn := s.onChange
	s.mu.Unlock()

	emit[*entity.Notification](fn, nil)
}

func (s *NotificationScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Current returns a copy of the live notification, if any.
func (s *NotificationScheduler) Current() (entity.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return entity.Notification{}, false
	}
	return *s.current, true
}

// Pending reports the number of outstanding dwell timers, 0 or 1.
func (s *NotificationScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return 1
	}
	return 0
}

// Stop drops the live notification without notifying.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.current = nil
}
