package router

import (
	"context"

	"github.com/oksasatya/go-form-playground/internal/container"
	handlers "github.com/oksasatya/go-form-playground/internal/interface/http"
	"github.com/oksasatya/go-form-playground/internal/router/modules"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

// InitModules builds the handlers from the container and registers every
// module. Call once during startup, after the container is populated.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	sessionHandler := handlers.NewSessionHandler(
		container.GetSessions(),
		container.GetJWT(),
		logger,
		cfg.CookieDomain,
		cfg.CookieSecure,
	)
	availabilityHandler := handlers.NewAvailabilityHandler(
		container.GetChecker(),
		cfg.AvailabilityTimeout,
		logger,
	)

	required := map[string]handlers.Probe{}
	if pool := container.GetPGPool(); pool != nil {
		required["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		required["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	optional := map[string]handlers.Probe{"elasticsearch": nil, "gcs": nil, "rabbitmq": nil}
	if es := container.GetES(); es != nil {
		optional["elasticsearch"] = func(ctx context.Context) error { return helpers.PingES(ctx, es) }
	}
	if gcs := container.GetGCS(); gcs != nil {
		bucket := cfg.GCSBucket
		optional["gcs"] = func(ctx context.Context) error {
			_, err := gcs.Bucket(bucket).Attrs(ctx)
			return err
		}
	}
	if pub := container.GetRabbitPub(); pub != nil {
		optional["rabbitmq"] = func(context.Context) error {
			if pub.Closed() {
				return helpers.ErrPublisherClosed
			}
			return nil
		}
	}
	healthHandler := handlers.NewHealthHandler(required, optional, cfg.AvailabilityTimeout)

	r.Add(modules.NewHealthModule(healthHandler))
	r.Add(modules.NewSessionModule(sessionHandler, container.GetJWT()))
	r.Add(modules.NewAvailabilityModule(availabilityHandler))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetSessions()))
	}
}
