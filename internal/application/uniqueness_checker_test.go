package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	repo "github.com/oksasatya/go-form-playground/internal/domain/repository"
)

// memUserRepo is an in-memory repository.UserRepository.
type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	failErr error
}

func newMemUserRepo(emails ...string) *memUserRepo {
	r := &memUserRepo{users: map[string]*entity.User{}}
	for _, e := range emails {
		r.users[e] = &entity.User{ID: "seed-" + e, Email: e}
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if _, ok := r.users[u.Email]; ok {
		return repo.ErrDuplicate
	}
	u.ID = "id-" + u.Email
	u.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return false, r.failErr
	}
	_, ok := r.users[email]
	return ok, nil
}

func TestSimulatedChecker_Latency(t *testing.T) {
	c := newManual()
	s := simulated(c, false)

	var got []entity.Availability
	s.Check(context.Background(), "a@b.co", func(a entity.Availability, err error) {
		require.NoError(t, err)
		got = append(got, a)
	})

	c.Advance(checkLatency - time.Millisecond)
	assert.Empty(t, got)
	c.Advance(time.Millisecond)
	assert.Equal(t, []entity.Availability{entity.AvailabilityAvailable}, got)
}

func TestSimulatedChecker_Probability(t *testing.T) {
	s := &SimulatedChecker{TakenProbability: 0.20, Exempt: "test@example.com"}

	s.Roll = func() float64 { return 0.19 }
	assert.Equal(t, entity.AvailabilityTaken, s.decide("x@y.zz"))
	s.Roll = func() float64 { return 0.20 }
	assert.Equal(t, entity.AvailabilityAvailable, s.decide("x@y.zz"))
	s.Roll = func() float64 { return 0 }
	assert.Equal(t, entity.AvailabilityAvailable, s.decide(" Test@Example.com "), "exempt address")
}

func TestSimulatedChecker_CancelledContext(t *testing.T) {
	c := newManual()
	s := simulated(c, false)

	ctx, cancel := context.WithCancel(context.Background())
	called := false
	s.Check(ctx, "a@b.co", func(entity.Availability, error) { called = true })
	cancel()

	c.Advance(checkLatency)
	assert.False(t, called)
}

func TestRepositoryChecker(t *testing.T) {
	r := newMemUserRepo("taken@example.com")
	ch := NewRepositoryChecker(r, nil)
	ctx := context.Background()

	a, err := CheckNow(ctx, ch, "Taken@Example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityTaken, a)

	a, err = CheckNow(ctx, ch, "free@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityAvailable, a)

	r.failErr = errors.New("db down")
	a, err = CheckNow(ctx, ch, "free@example.com")
	assert.Error(t, err)
	assert.Equal(t, entity.AvailabilityUnknown, a)
}

func TestCachedChecker_WithoutRedisDelegates(t *testing.T) {
	ch := NewCachedChecker(NewRepositoryChecker(newMemUserRepo("x@y.zz"), nil), nil, time.Minute, nil)

	a, err := CheckNow(context.Background(), ch, "x@y.zz")
	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityTaken, a)
	assert.NoError(t, ch.MarkTaken(context.Background(), "x@y.zz"))
}

func TestCheckNow_Timeout(t *testing.T) {
	c := newManual()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	a, err := CheckNow(ctx, simulated(c, false), "a@b.co")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, entity.AvailabilityUnknown, a)
}
