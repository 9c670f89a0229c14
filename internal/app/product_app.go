package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/consumer"
	"github.com/bilawal506/online-mart/internal/controller"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	kafkamq "github.com/bilawal506/online-mart/internal/infrastructure/message-queue/kafka"
	"github.com/bilawal506/online-mart/internal/infrastructure/tracing"
	"github.com/bilawal506/online-mart/internal/middleware"
	"github.com/bilawal506/online-mart/internal/repository"
	"github.com/bilawal506/online-mart/internal/service"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/sdk/trace"
)

const consumerMaxOpenConns = 2

// ProductApp is the products service: the HTTP API plus the consumer that
// materializes product events into the database.
type ProductApp struct {
	Config *config.Config

	// Writer and NewReader replace the Kafka client when set before Init.
	Writer    kafkamq.MessageWriter
	NewReader consumer.ReaderFactory

	Server *echo.Echo

	db             *sqlx.DB
	consumerDB     *sqlx.DB
	producer       *kafkamq.Producer
	supervisor     *consumer.Supervisor
	scheduler      gocron.Scheduler
	metrics        *echo.Echo
	tracerProvider *trace.TracerProvider
}

// Init connects to the database and broker, starts the consumer and the
// metrics server, and registers the routes. It does not listen on the service
// port; Start does.
func (app *ProductApp) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			app.Stop(context.WithoutCancel(ctx))
		}
	}()

	app.tracerProvider, err = tracing.InitTracing(ctx, app.Config.TracingConfig.CollectorHost, "product-service")
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

	app.consumerDB, err = database.Connect(ctx, app.Config.DatabaseConfig)
	if err != nil {
		return err
	}
	app.consumerDB.SetMaxOpenConns(consumerMaxOpenConns)

	if app.Writer != nil {
		app.producer = kafkamq.NewProducer(app.Config.KafkaConfig, app.Writer)
	} else {
		app.producer = kafkamq.CreateKafkaProducer(app.Config)
	}

	newReader := app.NewReader
	if newReader == nil {
		newReader = func() (consumer.MessageReader, error) {
			return kafkamq.CreateKafkaReader(app.Config), nil
		}
	}

	productConsumer := consumer.NewConsumer(
		newReader,
		repository.CreateNewProductRepository(app.consumerDB),
		app.producer,
		consumer.OptionsFromConfig(app.Config.KafkaConfig),
	)
	app.supervisor = consumer.NewSupervisor(productConsumer)

	app.scheduler, err = gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if _, err = consumer.ScheduleLagReport(app.scheduler, productConsumer); err != nil {
		return fmt.Errorf("schedule lag report: %w", err)
	}

	registry := prometheus.NewRegistry()
	e := newServer(app.tracerProvider.Tracer("product-service"), registry)

	repo := repository.CreateNewProductRepository(app.db)
	svc := service.CreateNewProductService(repo, app.producer, app.Config.KafkaConfig)
	auth := middleware.Authenticate(app.Config.JWTConfig.JWTSecret, middleware.ClaimsPrincipal)
	controller.CreateProductController(e, svc, auth)
	e.GET("/health", app.Health)

	app.Server = e

	app.supervisor.Start(context.WithoutCancel(ctx))
	app.scheduler.Start()
	app.metrics = startMetricsServer(app.Config.MetricsPort, registry)

	log.Info().Str("component", "ProductApp").Str("topic", app.Config.KafkaConfig.BrokerTopic).Str("group", app.Config.KafkaConfig.ConsumerGroup).Msg("consumer started")

	return nil
}

// Start serves HTTP until Stop is called.
func (app *ProductApp) Start() error {
	log.Info().Str("component", "ProductApp").Str("port", app.Config.ServicePort).Msg("listening")

	return listen(app.Server, app.Config.ServicePort)
}

func (app *ProductApp) Health(c echo.Context) error {
	health := app.supervisor.Health()

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, health)
}

// Stop shuts down in dependency order: no new requests, then no new
// messages, then the clients those depended on.
func (app *ProductApp) Stop(ctx context.Context) error {
	var errList []error

	if err := shutdownServer(ctx, app.Server); err != nil {
		errList = append(errList, fmt.Errorf("shutdown server: %w", err))
	}
	if err := shutdownServer(ctx, app.metrics); err != nil {
		errList = append(errList, fmt.Errorf("shutdown metrics server: %w", err))
	}
	if app.supervisor != nil {
		if err := app.supervisor.Stop(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if app.scheduler != nil {
		if err := app.scheduler.Shutdown(); err != nil {
			errList = append(errList, fmt.Errorf("shutdown scheduler: %w", err))
		}
	}
	if app.producer != nil {
		if err := app.producer.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close producer: %w", err))
		}
	}
	for _, db := range []*sqlx.DB{app.db, app.consumerDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil {
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
