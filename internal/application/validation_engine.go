package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/debounce"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrNoChecker    = errors.New("no email availability checker configured")
)

const (
	emailCheckKey = "email"

	msgAlreadyTaken = "This email is already registered"
	msgCheckFailed  = "Could not verify email availability"
	msgCheckPending = "Email availability is still being checked"
)

func shakeKey(f entity.Field) string { return "shake:" + string(f) }

// EngineOptions carries the timings of the validation engine.
type EngineOptions struct {
	DebounceWindow time.Duration
	ShakeDuration  time.Duration
}

// ValidationEngine owns the registration form state. Every keystroke goes
// through OnFieldInput; email addresses that pass the syntax check are sent
// to the uniqueness checker once typing pauses for DebounceWindow.
//
// Results of superseded checks are recognised by comparing the address they
// were started for with the live value and are dropped. Without a checker
// every check fails with ErrNoChecker.
type ValidationEngine struct {
	mu       sync.Mutex
	clock    clock.Clock
	debounce *debounce.Debouncer
	checker  UniquenessChecker
	logger   *logrus.Logger
	opts     EngineOptions

	ctx         context.Context
	cancel      context.CancelFunc
	cancelCheck context.CancelFunc
	closed      bool

	state    entity.FormState
	strength entity.PasswordStrength
	onChange func(entity.FormSnapshot)
}

func NewValidationEngine(c clock.Clock, checker UniquenessChecker, logger *logrus.Logger, opts EngineOptions) *ValidationEngine {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = helpers.NopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ValidationEngine{
		clock:    c,
		debounce: debounce.New(c),
		checker:  checker,
		logger:   logger,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnChange installs the render callback, invoked after every state change
// with a full snapshot. It is never called with the engine lock held.
func (e *ValidationEngine) OnChange(fn func(entity.FormSnapshot)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// OnFieldInput records a new value for field and revalidates it.
func (e *ValidationEngine) OnFieldInput(field entity.Field, value string) error {
	if !field.Valid() {
		return ErrUnknownField
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	fs := e.state.Ptr(field)
	fs.Value = value

	v := e.validateLocked(field, value)
	e.applyVerdictLocked(field, fs, v)

	if field == entity.FieldEmail {
		e.cancelCheckLocked()
		fs.AsyncResult = entity.AvailabilityUnknown
		if v.Valid {
			fs.AsyncPending = true
			e.debounce.Schedule(emailCheckKey, e.opts.DebounceWindow, func() { e.startCheck(value) })
		} else {
			fs.AsyncPending = false
			e.debounce.Cancel(emailCheckKey)
		}
	}
	snap, fn := e.snapshotLocked(), e.onChange
	e.mu.Unlock()

	emit(fn, snap)
	return nil
}

func (e *ValidationEngine) validateLocked(field entity.Field, value string) form.Verdict {
	if field == entity.FieldPassword {
		v, st := form.ValidatePasswordStrength(value)
		e.strength = st
		return v
	}
	return form.Validate(field, value)
}

func (e *ValidationEngine) applyVerdictLocked(field entity.Field, fs *entity.FieldState, v form.Verdict) {
	fs.SyntaxValid = v.Valid
	if v.Valid {
		e.clearErrorLocked(field, fs)
		return
	}
	e.showErrorLocked(field, fs, v.Kind, v.Message)
}

func (e *ValidationEngine) showErrorLocked(field entity.Field, fs *entity.FieldState, kind entity.ErrorKind, msg string) {
	fs.ErrorKind = kind
	fs.ErrorMessage = msg
	if e.opts.ShakeDuration <= 0 {
		return
	}
	fs.Shaking = true
	e.debounce.Schedule(shakeKey(field), e.opts.ShakeDuration, func() { e.stopShake(field) })
}

func (e *ValidationEngine) clearErrorLocked(field entity.Field, fs *entity.FieldState) {
	fs.ErrorKind = entity.ErrNone
	fs.ErrorMessage = ""
	fs.Shaking = false
	e.debounce.Cancel(shakeKey(field))
}

func (e *ValidationEngine) stopShake(field entity.Field) {
	e.mu.Lock()
	fs := e.state.Ptr(field)
	if e.closed || !fs.Shaking {
		e.mu.Unlock()
		return
	}
	fs.Shaking = false
	snap, fn := e.snapshotLocked(), e.onChange
	e.mu.Unlock()
	emit(fn, snap)
}

func (e *ValidationEngine) cancelCheckLocked() {
	if e.cancelCheck != nil {
		e.cancelCheck()
		e.cancelCheck = nil
	}
}

// startCheck runs when the debounce window for requestValue elapses.
func (e *ValidationEngine) startCheck(requestValue string) {
	e.mu.Lock()
	if e.closed || e.state.Email.Value != requestValue {
		e.mu.Unlock()
		return
	}
	if e.checker == nil {
		e.mu.Unlock()
		e.OnAsyncResolved(entity.FieldEmail, requestValue, entity.AvailabilityUnknown, ErrNoChecker)
		return
	}
	e.cancelCheckLocked()
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelCheck = cancel
	e.state.Email.AsyncPending = true
	e.mu.Unlock()

	checksStarted.Add(1)
	e.logger.WithField("email", requestValue).Debug("email availability check started")
	e.checker.Check(ctx, requestValue, func(a entity.Availability, err error) {
		e.OnAsyncResolved(entity.FieldEmail, requestValue, a, err)
	})
}

// OnAsyncResolved applies the outcome of a uniqueness check started for
// requestValue. The outcome is ignored when the field has been edited since.
func (e *ValidationEngine) OnAsyncResolved(field entity.Field, requestValue string, result entity.Availability, err error) {
	e.mu.Lock()
	if e.closed || field != entity.FieldEmail {
		e.mu.Unlock()
		return
	}
	fs := e.state.Ptr(field)
	if fs.Value != requestValue || !fs.SyntaxValid {
		e.mu.Unlock()
		checksStale.Add(1)
		e.logger.WithField("email", requestValue).Debug("dropping stale availability result")
		return
	}

	fs.AsyncPending = false
	e.cancelCheckLocked()
	switch {
	case err != nil:
		fs.AsyncResult = entity.AvailabilityUnknown
		e.showErrorLocked(field, fs, entity.ErrCheckFailed, msgCheckFailed)
		e.logger.WithError(err).WithField("email", requestValue).Warn("email availability check failed")
	case result == entity.AvailabilityTaken:
		fs.AsyncResult = entity.AvailabilityTaken
		e.showErrorLocked(field, fs, entity.ErrAlreadyTaken, msgAlreadyTaken)
	case result == entity.AvailabilityAvailable:
		fs.AsyncResult = entity.AvailabilityAvailable
		e.clearErrorLocked(field, fs)
	default:
		fs.AsyncResult = entity.AvailabilityUnknown
		e.showErrorLocked(field, fs, entity.ErrCheckFailed, msgCheckFailed)
	}
	snap, fn := e.snapshotLocked(), e.onChange
	e.mu.Unlock()

	emit(fn, snap)
}

// CanSubmit reports whether every field passes and the email is confirmed
// available.
func (e *ValidationEngine) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Submittable()
}

// Submit revalidates every field and either releases the registration or
// returns a *form.ValidationError naming each failing field. Fields the user
// never touched get their error message shown here.
func (e *ValidationEngine) Submit() (entity.Registration, error) {
	e.mu.Lock()
	ve := &form.ValidationError{}
	for _, f := range entity.Fields {
		fs := e.state.Ptr(f)
		v := e.validateLocked(f, fs.Value)
		if !v.Valid {
			e.applyVerdictLocked(f, fs, v)
			ve.Add(f, v.Kind, v.Message)
			continue
		}
		if f != entity.FieldEmail {
			continue
		}
		switch {
		case fs.AsyncResult == entity.AvailabilityAvailable:
		case fs.AsyncResult == entity.AvailabilityTaken:
			ve.Add(f, entity.ErrAlreadyTaken, msgAlreadyTaken)
		case fs.ErrorKind == entity.ErrCheckFailed:
			ve.Add(f, entity.ErrCheckFailed, msgCheckFailed)
		default:
			ve.Add(f, entity.ErrCheckPending, msgCheckPending)
		}
	}

	var reg entity.Registration
	if ve.Empty() {
		reg = entity.Registration{
			Name:     form.TrimName(e.state.Name.Value),
			Email:    form.NormalizeEmail(e.state.Email.Value),
			Password: e.state.Password.Value,
		}
	}
	snap, fn := e.snapshotLocked(), e.onChange
	e.mu.Unlock()

	emit(fn, snap)
	if !ve.Empty() {
		return entity.Registration{}, ve
	}
	return reg, nil
}

// Reset empties every field and drops pending checks and cues.
func (e *ValidationEngine) Reset() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.cancelCheckLocked()
	e.debounce.Stop()
	e.state = entity.FormState{}
	e.strength = entity.PasswordStrength{}
	snap, fn := e.snapshotLocked(), e.onChange
	e.mu.Unlock()

	emit(fn, snap)
}

// Snapshot returns the current form state.
func (e *ValidationEngine) Snapshot() entity.FormSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *ValidationEngine) snapshotLocked() entity.FormSnapshot {
	return entity.FormSnapshot{
		Fields:      e.state,
		Strength:    e.strength,
		Checking:    e.state.Email.AsyncPending,
		Submittable: e.state.Submittable(),
	}
}

// Close cancels in-flight checks and timers. Later calls are no-ops.
func (e *ValidationEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.cancelCheckLocked()
	e.debounce.Stop()
	e.cancel()
}

func emit[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}
