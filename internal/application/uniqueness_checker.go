package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	repo "github.com/oksasatya/go-form-playground/internal/domain/repository"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

// CheckDone receives the outcome of a uniqueness check.
type CheckDone func(entity.Availability, error)

// UniquenessChecker answers whether an email address is still free.
// Check must call done at most once, possibly from another goroutine. Once
// ctx is cancelled the checker may skip calling done altogether; callers
// must not rely on that and have to discard late results themselves.
type UniquenessChecker interface {
	Check(ctx context.Context, email string, done CheckDone)
}

// SimulatedChecker stands in for a remote availability lookup: it answers
// after a fixed latency and reports an address as taken with a fixed
// probability, except for the exempt address which is always available.
type SimulatedChecker struct {
	Clock            clock.Clock
	Latency          time.Duration
	TakenProbability float64
	Exempt           string
	// Roll returns a value in [0,1); nil means math/rand.
	Roll func() float64
}

func NewSimulatedChecker(c clock.Clock, latency time.Duration, takenProbability float64, exempt string) *SimulatedChecker {
	return &SimulatedChecker{Clock: c, Latency: latency, TakenProbability: takenProbability, Exempt: exempt}
}

func (s *SimulatedChecker) Check(ctx context.Context, email string, done CheckDone) {
	c := s.Clock
	if c == nil {
		c = clock.New()
	}
	t := c.AfterFunc(s.Latency, func() {
		if ctx.Err() != nil {
			return
		}
		done(s.decide(email), nil)
	})
	context.AfterFunc(ctx, func() { t.Stop() })
}

func (s *SimulatedChecker) decide(email string) entity.Availability {
	if s.Exempt != "" && form.NormalizeEmail(email) == form.NormalizeEmail(s.Exempt) {
		return entity.AvailabilityAvailable
	}
	roll := s.Roll
	if roll == nil {
		roll = rand.Float64
	}
	if roll() < s.TakenProbability {
		return entity.AvailabilityTaken
	}
	return entity.AvailabilityAvailable
}

// RepositoryChecker looks the address up in the users table.
type RepositoryChecker struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger
}

func NewRepositoryChecker(r repo.UserRepository, logger *logrus.Logger) *RepositoryChecker {
	return &RepositoryChecker{Repo: r, Logger: logger}
}

func (c *RepositoryChecker) Check(ctx context.Context, email string, done CheckDone) {
	go func() {
		exists, err := c.Repo.ExistsByEmail(ctx, form.NormalizeEmail(email))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if c.Logger != nil {
				c.Logger.WithError(err).WithField("email", email).Warn("availability lookup failed")
			}
			done(entity.AvailabilityUnknown, err)
			return
		}
		if exists {
			done(entity.AvailabilityTaken, nil)
			return
		}
		done(entity.AvailabilityAvailable, nil)
	}()
}

func availabilityKey(email string) string {
	return "email:availability:" + form.NormalizeEmail(email)
}

// CachedChecker keeps recent answers in Redis in front of another checker.
// Redis failures fall through to the wrapped checker.
type CachedChecker struct {
	Next   UniquenessChecker
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func NewCachedChecker(next UniquenessChecker, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedChecker {
	return &CachedChecker{Next: next, Redis: rdb, TTL: ttl, Logger: logger}
}

// cachedAvailability is the JSON value stored per address.
type cachedAvailability struct {
	Availability entity.Availability `json:"availability"`
	CheckedAt    time.Time           `json:"checked_at"`
}

func (c *CachedChecker) Check(ctx context.Context, email string, done CheckDone) {
	if c.Redis == nil {
		c.Next.Check(ctx, email, done)
		return
	}
	go func() {
		key := availabilityKey(email)
		var hit cachedAvailability
		found, err := helpers.RedisGetJSON(ctx, c.Redis, key, &hit)
		switch {
		case err != nil:
			c.logger().WithError(err).WithField("key", key).Warn("redis availability read failed")
		case found && hit.Availability != entity.AvailabilityUnknown:
			done(hit.Availability, nil)
			return
		}

		c.Next.Check(ctx, email, func(a entity.Availability, err error) {
			if err == nil && a != entity.AvailabilityUnknown {
				if sErr := c.store(context.WithoutCancel(ctx), key, a); sErr != nil {
					c.logger().WithError(sErr).WithField("key", key).Warn("redis availability write failed")
				}
			}
			done(a, err)
		})
	}()
}

func (c *CachedChecker) store(ctx context.Context, key string, a entity.Availability) error {
	return helpers.RedisSetJSON(ctx, c.Redis, key, cachedAvailability{Availability: a, CheckedAt: time.Now().UTC()}, c.TTL)
}

func (c *CachedChecker) logger() *logrus.Logger {
	if c.Logger == nil {
		return helpers.NopLogger()
	}
	return c.Logger
}

// MarkTaken records a freshly registered address so cached "available"
// answers do not outlive the registration.
func (c *CachedChecker) MarkTaken(ctx context.Context, email string) error {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.store(ctx, availabilityKey(email), entity.AvailabilityTaken)
}

// CheckNow runs a check and waits for its outcome, bounded by ctx.
func CheckNow(ctx context.Context, checker UniquenessChecker, email string) (entity.Availability, error) {
	type result struct {
		a   entity.Availability
		err error
	}
	ch := make(chan result, 1)
	checker.Check(ctx, email, func(a entity.Availability, err error) {
		ch <- result{a, err}
	})
	select {
	case r := <-ch:
		return r.a, r.err
	case <-ctx.Done():
		return entity.AvailabilityUnknown, ctx.Err()
	}
}
