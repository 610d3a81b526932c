package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/homie/internal/api/http"
	"github.com/i474232898/homie/internal/config"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/dashboard"
	"github.com/i474232898/homie/internal/greeting"
	"github.com/i474232898/homie/internal/location"
	"github.com/i474232898/homie/internal/logging"
	"github.com/i474232898/homie/internal/scheduler"
	"github.com/i474232898/homie/internal/search"
	"github.com/i474232898/homie/internal/settings"
	"github.com/i474232898/homie/internal/store"
)

const serviceName = "homie"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg, err := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		stop()
		lg.Fatal().Err(err).Msg("homie stopped")
	}
}

// run wires the services and serves until ctx is done or the listener fails.
func run(ctx context.Context, cfg *config.AppConfig, lg zerolog.Logger) error {
	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	kv, jobs, closeStore, err := openStore(cfg, lg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	fallback := coordinates.Coordinates{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon}

	locator, err := newLocator(cfg, httpClient)
	if err != nil {
		return fmt.Errorf("configure geolocation: %w", err)
	}
	coordsSvc := coordinates.NewService(locator, kv, lg)

	geocoder := newGeocoder(cfg, httpClient)
	locationSvc := location.NewService(geocoder, kv, lg, location.WithFallback(fallback))

	weatherSvc := newWeatherService(cfg, httpClient, fallback, lg)

	quoteSvc, err := newQuoteService(cfg, httpClient, lg)
	if err != nil {
		return fmt.Errorf("load quotes: %w", err)
	}

	periods, err := greeting.LoadPeriods(cfg.GreetingsFile)
	if err != nil {
		return fmt.Errorf("load greetings: %w", err)
	}
	greetings := greeting.NewService(periods)

	settingsStore := settings.New(kv, lg)
	if n, ok := kv.(store.Notifier); ok {
		defer settingsStore.Watch(n)()
	}

	dash := dashboard.NewService(dashboard.Deps{
		Settings:    settingsStore,
		Greetings:   greetings,
		Coordinates: coordsSvc,
		Location:    locationSvc,
		Weather:     weatherSvc,
		Quotes:      quoteSvc,
	}, lg)

	// Background jobs: storage sync, log pruning and cache warm-up.
	jobs = append(jobs, scheduler.Job{
		Name:     "warm",
		Interval: cfg.WarmInterval,
		Timeout:  time.Minute,
		Run:      dash.Warm,
	})
	sched := scheduler.New(jobs, lg)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				lg.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
			"version": cfg.Version().String(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Services{
		Dashboard:   dash,
		Coordinates: coordsSvc,
		Location:    locationSvc,
		Weather:     weatherSvc,
		Quotes:      quoteSvc,
		Greetings:   greetings,
		Settings:    settingsStore,
		Suggester:   search.NewSuggester(httpClient, cfg.SuggestURL),
	})

	listenErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.Port).Str("version", cfg.Version().String()).Msg("listening")
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
	return nil
}
