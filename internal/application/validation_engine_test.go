package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
)

func TestValidationEngine_ValidFormBecomesSubmittable(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, true))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "Jo"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "test@example.com"))
	require.NoError(t, e.OnFieldInput(entity.FieldPassword, "Aa1!aaaa"))

	snap := e.Snapshot()
	assert.True(t, snap.Checking)
	assert.False(t, e.CanSubmit())
	assert.Equal(t, "Strong", snap.Strength.Label())

	c.Advance(debounceWindow)
	assert.True(t, e.Snapshot().Checking, "check in flight")
	assert.False(t, e.CanSubmit())

	c.Advance(checkLatency)
	snap = e.Snapshot()
	assert.False(t, snap.Checking)
	assert.Equal(t, entity.AvailabilityAvailable, snap.Fields.Email.AsyncResult)
	assert.True(t, e.CanSubmit())

	reg, err := e.Submit()
	require.NoError(t, err)
	assert.Equal(t, entity.Registration{Name: "Jo", Email: "test@example.com", Password: "Aa1!aaaa"}, reg)
}

func TestValidationEngine_TakenEmailBlocksSubmit(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, true))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "Jane"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jane@example.com"))
	require.NoError(t, e.OnFieldInput(entity.FieldPassword, "Aa1!aaaa"))
	c.Advance(debounceWindow + checkLatency)

	email := e.Snapshot().Fields.Email
	assert.Equal(t, entity.AvailabilityTaken, email.AsyncResult)
	assert.Equal(t, entity.ErrAlreadyTaken, email.ErrorKind)
	assert.Equal(t, "This email is already registered", email.ErrorMessage)
	assert.False(t, e.CanSubmit())

	_, err := e.Submit()
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(entity.FieldEmail))
	assert.Len(t, ve.Failures, 1)
}

func TestValidationEngine_DebounceCoalescesTyping(t *testing.T) {
	c := newManual()
	var checked []string
	checker := funcChecker(func(email string) (entity.Availability, error) {
		checked = append(checked, email)
		return entity.AvailabilityAvailable, nil
	})
	e := newEngine(c, checker)
	defer e.Close()

	for _, v := range []string{"a@b.c", "a@b.co", "a@b.com"} {
		require.NoError(t, e.OnFieldInput(entity.FieldEmail, v))
		c.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, checked)

	c.Advance(debounceWindow)
	assert.Equal(t, []string{"a@b.com"}, checked)
}

func TestValidationEngine_StaleResolutionIgnored(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "old@example.com"))
	c.Advance(debounceWindow)
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "new@example.com"))

	e.OnAsyncResolved(entity.FieldEmail, "old@example.com", entity.AvailabilityTaken, nil)

	email := e.Snapshot().Fields.Email
	assert.Equal(t, "new@example.com", email.Value)
	assert.Equal(t, entity.AvailabilityUnknown, email.AsyncResult)
	assert.True(t, email.AsyncPending)
	assert.Empty(t, email.ErrorMessage)

	c.Advance(debounceWindow + checkLatency)
	assert.Equal(t, entity.AvailabilityAvailable, e.Snapshot().Fields.Email.AsyncResult)
}

func TestValidationEngine_InvalidEmailCancelsCheck(t *testing.T) {
	c := newManual()
	calls := 0
	e := newEngine(c, funcChecker(func(string) (entity.Availability, error) {
		calls++
		return entity.AvailabilityAvailable, nil
	}))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "ok@example.com"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "ok@"))
	c.Advance(time.Second)

	email := e.Snapshot().Fields.Email
	assert.Zero(t, calls)
	assert.False(t, email.AsyncPending)
	assert.Equal(t, entity.ErrInvalidFormat, email.ErrorKind)
	assert.Equal(t, "Please enter a valid email", email.ErrorMessage)
}

func TestValidationEngine_CheckFailure(t *testing.T) {
	c := newManual()
	e := newEngine(c, funcChecker(func(string) (entity.Availability, error) {
		return entity.AvailabilityUnknown, errors.New("backend down")
	}))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "Jo"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jo@example.com"))
	require.NoError(t, e.OnFieldInput(entity.FieldPassword, "Aa1!aaaa"))
	c.Advance(debounceWindow)

	email := e.Snapshot().Fields.Email
	assert.Equal(t, entity.ErrCheckFailed, email.ErrorKind)
	assert.False(t, email.AsyncPending)
	assert.False(t, e.CanSubmit())

	_, err := e.Submit()
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, entity.ErrCheckFailed, ve.Failures[0].Kind)
}

func TestValidationEngine_NilCheckerFailsCheck(t *testing.T) {
	c := newManual()
	e := newEngine(c, nil)
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jo@example.com"))
	assert.True(t, e.Snapshot().Checking)
	c.Advance(debounceWindow)

	email := e.Snapshot().Fields.Email
	assert.Equal(t, entity.ErrCheckFailed, email.ErrorKind)
	assert.Equal(t, entity.AvailabilityUnknown, email.AsyncResult)
	assert.False(t, email.AsyncPending)
	assert.False(t, e.CanSubmit())
}

func TestValidationEngine_SubmitPendingEmail(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "Jo"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jo@example.com"))
	require.NoError(t, e.OnFieldInput(entity.FieldPassword, "Aa1!aaaa"))

	_, err := e.Submit()
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
	assert.Equal(t, entity.ErrCheckPending, ve.Failures[0].Kind)
}

func TestValidationEngine_SubmitEmptyFormShowsEveryError(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	_, err := e.Submit()
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"name":     "Name is required",
		"email":    "Email is required",
		"password": "Password is required",
	}, ve.Details())

	fields := e.Snapshot().Fields
	for _, f := range entity.Fields {
		assert.NotEmpty(t, fields.Get(f).ErrorMessage, f)
	}
}

func TestValidationEngine_FieldMessages(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "J"))
	require.NoError(t, e.OnFieldInput(entity.FieldPassword, "abc"))

	fields := e.Snapshot().Fields
	assert.Equal(t, "Name must be at least 2 characters", fields.Name.ErrorMessage)
	assert.Equal(t, "Password is too weak", fields.Password.ErrorMessage)

	require.NoError(t, e.OnFieldInput(entity.FieldName, "Jo"))
	assert.Empty(t, e.Snapshot().Fields.Name.ErrorMessage)
}

func TestValidationEngine_ShakeCue(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "J"))
	assert.True(t, e.Snapshot().Fields.Name.Shaking)

	c.Advance(shakeDuration)
	assert.False(t, e.Snapshot().Fields.Name.Shaking)
	assert.NotEmpty(t, e.Snapshot().Fields.Name.ErrorMessage, "message stays after the cue")
}

func TestValidationEngine_Reset(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	require.NoError(t, e.OnFieldInput(entity.FieldName, "J"))
	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jo@example.com"))
	e.Reset()

	assert.Equal(t, entity.FormSnapshot{}, e.Snapshot())
	c.Advance(5 * time.Second)
	assert.Equal(t, entity.FormSnapshot{}, e.Snapshot(), "pending check dropped")
	assert.Zero(t, c.Pending())
}

func TestValidationEngine_OnChange(t *testing.T) {
	c := newManual()
	e := newEngine(c, simulated(c, false))
	defer e.Close()

	var snaps []entity.FormSnapshot
	e.OnChange(func(s entity.FormSnapshot) { snaps = append(snaps, s) })

	require.NoError(t, e.OnFieldInput(entity.FieldEmail, "jo@example.com"))
	c.Advance(debounceWindow + checkLatency)

	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Checking)
	assert.Equal(t, entity.AvailabilityAvailable, snaps[1].Fields.Email.AsyncResult)
}

func TestValidationEngine_UnknownField(t *testing.T) {
	e := newEngine(newManual(), nil)
	defer e.Close()
	assert.ErrorIs(t, e.OnFieldInput(entity.Field("age"), "3"), ErrUnknownField)
}
