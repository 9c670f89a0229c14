package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/controller"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	"github.com/bilawal506/online-mart/internal/infrastructure/tracing"
	"github.com/bilawal506/online-mart/internal/middleware"
	"github.com/bilawal506/online-mart/internal/repository"
	"github.com/bilawal506/online-mart/internal/service"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/bilawal506/online-mart/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/sdk/trace"
)

type UserApp struct {
	Config *config.Config

	// Mailer replaces SMTP delivery when set before Init.
	Mailer utils.Mailer

	Server *echo.Echo

	db             *sqlx.DB
	service        *service.UserServiceImpl
	metrics        *echo.Echo
	tracerProvider *trace.TracerProvider
}

func (app *UserApp) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			app.Stop(context.WithoutCancel(ctx))
		}
	}()

	app.tracerProvider, err = tracing.InitTracing(ctx, app.Config.TracingConfig.CollectorHost, "user-service")
	if err != nil {
		return err
	}

	app.db, err = database.Connect(ctx, app.Config.DatabaseConfig)
	if err != nil {
		return err
	}
	if err = database.EnsureSchema(ctx, app.db); err != nil {
		return err
	}

	mailer := app.Mailer
	if mailer == nil {
		mailer = utils.NewSMTPMailer(app.Config.MailConfig)
	}

	registry := prometheus.NewRegistry()
	e := newServer(app.tracerProvider.Tracer("user-service"), registry)

	repo := repository.CreateNewUserRepository(app.db)
	app.service = service.CreateNewUserService(repo, mailer, *app.Config)
	auth := middleware.Authenticate(app.Config.JWTConfig.JWTSecret, storedPrincipal(repo))
	controller.CreateUserController(e, app.service, auth)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	app.Server = e
	app.metrics = startMetricsServer(app.Config.MetricsPort, registry)

	return nil
}

// storedPrincipal takes the role from the database rather than the token, so a
// deleted or demoted account loses access before its token expires.
func storedPrincipal(repo repository.UserRepository) middleware.PrincipalResolver {
	return func(ctx context.Context, claims *utils.AccessClaims) (middleware.Principal, error) {
		user, err := repo.GetUserByUsername(ctx, claims.Subject)
		if errors.Is(err, errs.ErrUserNotFound) {
			return middleware.Principal{}, errs.ErrNotLoggedIn
		}
		if err != nil {
			return middleware.Principal{}, err
		}

		return middleware.Principal{Username: user.Username, IsAdmin: user.IsAdmin(), User: &user}, nil
	}
}

func (app *UserApp) Start() error {
	log.Info().Str("component", "UserApp").Str("port", app.Config.ServicePort).Msg("listening")

	return listen(app.Server, app.Config.ServicePort)
}

// Stop also waits for reset emails that are still being sent.
func (app *UserApp) Stop(ctx context.Context) error {
	var errList []error

	if err := shutdownServer(ctx, app.Server); err != nil {
		errList = append(errList, fmt.Errorf("shutdown server: %w", err))
	}
	if err := shutdownServer(ctx, app.metrics); err != nil {
		errList = append(errList, fmt.Errorf("shutdown metrics server: %w", err))
	}
	if app.service != nil {
		mailsDone := make(chan struct{})
		go func() {
			app.service.Wait()
			close(mailsDone)
		}()

		select {
		case <-mailsDone:
		case <-ctx.Done():
			errList = append(errList, fmt.Errorf("waiting for reset emails: %w", ctx.Err()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close database: %w", err))
		}
	}
	if app.tracerProvider != nil {
		if err := app.tracerProvider.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("shutdown tracing: %w", err))
		}
	}

	return errors.Join(errList...)
}
