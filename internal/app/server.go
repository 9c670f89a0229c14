package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/bilawal506/online-mart/internal/middleware"
	"github.com/bilawal506/online-mart/pkg/response"
	"github.com/bilawal506/online-mart/pkg/utils"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger installs the process-wide zerolog logger. Development gets the
// human readable console writer, everything else JSON on stdout.
func InitLogger(environment string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if environment == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newServer builds the echo instance shared by both services. HTTP metrics go
// to registry so that each service instance owns its collectors.
func newServer(tracer trace.Tracer, registry *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = utils.NewValidator()

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// span creation and naming
			ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
			defer span.End()

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	})

	// Default subsystem: both services export the same echo_* series, told apart by job label.
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Registerer: registry,
	}))
	e.Use(middleware.Logger)

	return e
}

// startMetricsServer serves /metrics on its own port until shut down. It
// returns nil when no port is configured.
func startMetricsServer(port string, registry *prometheus.Registry) *echo.Echo {
	if port == "" {
		return nil
	}

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.HidePort = true
	metrics.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{registry, prometheus.DefaultGatherer},
	}))

	go func() {
		if err := metrics.Start(fmt.Sprintf(":%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "startMetricsServer").Msg("Failed to start metrics server")
		}
	}()

	return metrics
}

func listen(e *echo.Echo, port string) error {
	if err := e.Start(fmt.Sprintf(":%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func shutdownServer(ctx context.Context, e *echo.Echo) error {
	if e == nil {
		return nil
	}

	return e.Shutdown(ctx)
}
