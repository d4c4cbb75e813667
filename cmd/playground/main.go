// Command playground runs the registration form, carousel and notification
// area in the terminal, using the same session service as the HTTP API.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-form-playground/config"
	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/infrastructure/slides"
	"github.com/oksasatya/go-form-playground/pkg/clock"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

type options struct {
	seed             int64
	takenProbability float64
	exempt           string
	debounce         time.Duration
	latency          time.Duration
	logFile          string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()
	cfg := config.Load()
	opts := options{
		takenProbability: cfg.TakenProbability,
		exempt:           cfg.ExemptEmail,
		debounce:         cfg.DebounceWindow,
		latency:          cfg.CheckLatency,
	}

	cmd := &cobra.Command{
		Use:          "playground",
		Short:        "Interactive registration form with live validation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.takenProbability < 0 || opts.takenProbability > 1 {
				return fmt.Errorf("--taken-probability must be within [0,1], got %v", opts.takenProbability)
			}
			return run(cmd.Context(), cfg, opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 0, "seed for the simulated checker (0 picks a random seed)")
	f.Float64Var(&opts.takenProbability, "taken-probability", opts.takenProbability, "chance an address is reported taken")
	f.StringVar(&opts.exempt, "exempt", opts.exempt, "address that is always available")
	f.DurationVar(&opts.debounce, "debounce", opts.debounce, "pause in typing before the email is checked")
	f.DurationVar(&opts.latency, "latency", opts.latency, "simulated check latency")
	f.StringVar(&opts.logFile, "log-file", "", "write debug logs to this file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	logger, closeLog, err := openLogger(cfg, opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	slideList, err := slides.NewStaticRepository(cfg.SlidePairs()).List(ctx)
	if err != nil {
		return err
	}

	c := clock.New()
	checker := application.NewSimulatedChecker(c, opts.latency, opts.takenProbability, opts.exempt)
	checker.Roll = seededRoll(opts.seed)

	session, err := application.NewSession("terminal", application.SessionConfig{
		Clock:   c,
		Checker: checker,
		Slides:  slideList,
		Logger:  logger,
		Engine: application.EngineOptions{
			DebounceWindow: opts.debounce,
			ShakeDuration:  cfg.ShakeDuration,
		},
		NotificationDwell: cfg.NotificationDwell,
		ResetDelay:        cfg.ResetDelay,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	changes := make(chan struct{}, 1)
	session.OnChange(func(application.SessionSnapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	p := tea.NewProgram(newModel(session, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

func openLogger(cfg *config.Config, path string) (*logrus.Logger, func(), error) {
	if path == "" {
		return helpers.NopLogger(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	// The terminal belongs to the UI, so nothing may reach stdout.
	logger := helpers.NopLogger()
	logger.SetOutput(f)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.WithField("app", cfg.AppName+"-playground").Info("logger initialized")
	return logger, func() { _ = f.Close() }, nil
}

// seededRoll returns a goroutine-safe source for the simulated checker.
func seededRoll(seed int64) func() float64 {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(uint64(seed), 0))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}
