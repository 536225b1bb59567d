package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-card/internal/api/http"
	"github.com/i474232898/weather-card/internal/config"
	"github.com/i474232898/weather-card/internal/location"
	"github.com/i474232898/weather-card/internal/logging"
	"github.com/i474232898/weather-card/internal/scheduler"
	"github.com/i474232898/weather-card/internal/session"
	"github.com/i474232898/weather-card/internal/store"
	"github.com/i474232898/weather-card/internal/suntime"
	"github.com/i474232898/weather-card/internal/weather"
	"github.com/i474232898/weather-card/internal/weather/cwa"
)

const (
	appName = "weather-card"
	// generatedSunDays is precomputed at startup.
	generatedSunDays = 31
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, logging.Options{
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		AppName: appName,
	})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("weather card stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound dataset calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	source := cwa.NewClient(httpClient, cwa.Config{
		BaseURL:           cfg.CWABaseURL,
		RequestsPerSecond: cfg.CWARPS,
		Burst:             cfg.CWABurst,
	})
	agg := weather.NewAggregator(source, log, weather.WithTimeout(cfg.FetchTimeout))

	prefs, err := store.OpenSQLite(ctx, cfg.SQLitePath, log)
	if err != nil {
		return err
	}
	defer prefs.Close()

	points := sunPoints()
	table, err := loadSunTable(cfg.SunTablePath, points, log)
	if err != nil {
		return err
	}

	sess, err := session.New(ctx, session.Deps{
		Store:         prefs,
		Aggregator:    agg,
		Sun:           suntime.NewCalculator(table, nil, suntime.WithPoints(points)),
		CredentialKey: cfg.CWAAPIKey,
		DefaultCity:   cfg.DefaultCity,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	sched := scheduler.New(sess, cfg.RefreshInterval, cfg.FetchTimeout, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := prefs.Ping(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "preference store unavailable")
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, sess)

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("error during shutdown", "error", err)
	}
	return nil
}

// loadSunTable reads the sun table from path, or precomputes one for every
// selectable city when no path is configured. Dates outside the table are
// computed on demand by the calculator.
func loadSunTable(path string, points []suntime.Point, log *slog.Logger) (*suntime.Table, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sun table: %w", err)
		}
		defer f.Close()

		table, err := suntime.LoadTable(f)
		if err != nil {
			return nil, fmt.Errorf("load sun table %s: %w", path, err)
		}
		log.Info("sun table loaded", "path", path, "entries", table.Len())
		return table, nil
	}

	table := suntime.GenerateTable(points, time.Now(), generatedSunDays)
	log.Info("sun table generated", "entries", table.Len(), "days", generatedSunDays)
	return table, nil
}

func sunPoints() []suntime.Point {
	cities := location.Available()
	points := make([]suntime.Point, 0, len(cities))
	for _, c := range cities {
		points = append(points, suntime.Point{
			Name:      c.Keys.SunTableName,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		})
	}
	return points
}
