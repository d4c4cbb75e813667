package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	"github.com/oksasatya/go-form-playground/pkg/clock"
)

const resetDelay = 3000 * time.Millisecond

type fakeRegistrar struct {
	got []entity.Registration
	err error
}

func (f *fakeRegistrar) Register(_ context.Context, r entity.Registration) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = append(f.got, r)
	return &entity.User{ID: "u-1", Email: r.Email, Name: r.Name}, nil
}

func sessionConfig(c clock.Clock, reg Registrar) SessionConfig {
	return SessionConfig{
		Clock:     c,
		Checker:   simulated(c, true),
		Slides:    fourSlides(),
		Registrar: reg,
		Engine: EngineOptions{
			DebounceWindow: debounceWindow,
			ShakeDuration:  shakeDuration,
		},
		NotificationDwell: dwell,
		ResetDelay:        resetDelay,
	}
}

func fillValidForm(t *testing.T, c *clock.Manual, s *Session) {
	t.Helper()
	require.NoError(t, s.Input(entity.FieldName, "Jo"))
	require.NoError(t, s.Input(entity.FieldEmail, "test@example.com"))
	require.NoError(t, s.Input(entity.FieldPassword, "Aa1!aaaa"))
	c.Advance(debounceWindow + checkLatency)
}

func TestSession_SubmitFlow(t *testing.T) {
	c := newManual()
	reg := &fakeRegistrar{}
	s, err := NewSession("s-1", sessionConfig(c, reg))
	require.NoError(t, err)
	defer s.Close()

	fillValidForm(t, c, s)
	require.True(t, s.Snapshot().Form.Submittable)

	u, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, []entity.Registration{{Name: "Jo", Email: "test@example.com", Password: "Aa1!aaaa"}}, reg.got)
	assert.True(t, s.Snapshot().Submitted)

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	c.Advance(resetDelay)
	snap := s.Snapshot()
	assert.False(t, snap.Submitted)
	assert.Equal(t, entity.FormSnapshot{}, snap.Form)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "Form submitted successfully!", snap.Notification.Message)
	assert.Equal(t, entity.KindSuccess, snap.Notification.Kind)

	c.Advance(dwell)
	assert.Nil(t, s.Snapshot().Notification)
}

func TestSession_SubmitInvalidPostsError(t *testing.T) {
	c := newManual()
	s, err := NewSession("s-1", sessionConfig(c, nil))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Submit(context.Background())
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)

	snap := s.Snapshot()
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "Please fix the errors in the form", snap.Notification.Message)
	assert.Equal(t, entity.KindError, snap.Notification.Kind)
	assert.False(t, snap.Submitted)
}

func TestSession_RegistrarTakenKeepsForm(t *testing.T) {
	c := newManual()
	s, err := NewSession("s-1", sessionConfig(c, &fakeRegistrar{err: ErrEmailTaken}))
	require.NoError(t, err)
	defer s.Close()

	fillValidForm(t, c, s)
	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrEmailTaken)

	snap := s.Snapshot()
	assert.False(t, snap.Submitted)
	assert.Equal(t, "Jo", snap.Form.Fields.Name.Value)
	require.NotNil(t, snap.Notification)
	assert.Equal(t, "This email is already registered", snap.Notification.Message)
}

func TestSession_RegistrarFailure(t *testing.T) {
	c := newManual()
	s, err := NewSession("s-1", sessionConfig(c, &fakeRegistrar{err: errors.New("db down")}))
	require.NoError(t, err)
	defer s.Close()

	fillValidForm(t, c, s)
	_, err = s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Registration failed, please try again", s.Snapshot().Notification.Message)
}

// blockingRegistrar parks every Register call until release is closed.
type blockingRegistrar struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRegistrar) Register(_ context.Context, r entity.Registration) (*entity.User, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return &entity.User{ID: "u-1", Email: r.Email, Name: r.Name}, nil
}

func TestSession_ConcurrentSubmitRegistersOnce(t *testing.T) {
	c := newManual()
	reg := &blockingRegistrar{entered: make(chan struct{}, 2), release: make(chan struct{})}
	s, err := NewSession("s-1", sessionConfig(c, reg))
	require.NoError(t, err)
	defer s.Close()
	fillValidForm(t, c, s)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background())
	}()
	<-reg.entered

	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInProgress)

	close(reg.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.EqualValues(t, 1, reg.calls.Load())
	assert.True(t, s.Snapshot().Submitted)
	assert.Nil(t, s.Snapshot().Notification)

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
}

func TestSession_FailedSubmitReleasesGate(t *testing.T) {
	c := newManual()
	reg := &fakeRegistrar{err: errors.New("db down")}
	s, err := NewSession("s-1", sessionConfig(c, reg))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Submit(context.Background())
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)

	fillValidForm(t, c, s)
	_, err = s.Submit(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubmitInProgress)

	reg.err = nil
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, reg.got, 1)
}

func TestSession_OnChangeAndNavigation(t *testing.T) {
	c := newManual()
	s, err := NewSession("s-1", sessionConfig(c, nil))
	require.NoError(t, err)
	defer s.Close()

	var last SessionSnapshot
	calls := 0
	s.OnChange(func(snap SessionSnapshot) {
		calls++
		last = snap
	})

	s.Prev()
	assert.Equal(t, 3, last.Carousel.Current)
	s.Notify("hi", entity.KindInfo)
	assert.Equal(t, "hi", last.Notification.Message)
	s.Dismiss()
	assert.Nil(t, last.Notification)
	assert.Equal(t, 3, calls)
}

func TestSession_CloseStopsTimers(t *testing.T) {
	c := newManual()
	s, err := NewSession("s-1", sessionConfig(c, nil))
	require.NoError(t, err)

	fillValidForm(t, c, s)
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	s.Notify("bye", entity.KindInfo)
	require.NoError(t, s.Input(entity.FieldEmail, "other@example.com"))

	s.Close()
	s.Close()
	assert.Zero(t, c.Pending())
}

func TestSessionManager_Lifecycle(t *testing.T) {
	c := newManual()
	m := NewSessionManager(sessionConfig(c, nil))

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, m.Close(a.ID))
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(a.ID), ErrSessionNotFound)

	m.CloseAll()
	assert.Zero(t, m.Len())
}

func TestSessionManager_Sweep(t *testing.T) {
	c := newManual()
	m := NewSessionManager(sessionConfig(c, nil))

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	c.Advance(20 * time.Minute)
	active.Next()
	c.Advance(15 * time.Minute)

	assert.Equal(t, 1, m.Sweep(30*time.Minute))
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)

	m.CloseAll()
}

func TestSessionManager_NoSlides(t *testing.T) {
	cfg := sessionConfig(newManual(), nil)
	cfg.Slides = nil
	_, err := NewSessionManager(cfg).Create()
	assert.ErrorIs(t, err, ErrNoSlides)
}
