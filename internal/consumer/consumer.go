package consumer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/domain"
	kafkamq "github.com/bilawal506/online-mart/internal/infrastructure/message-queue/kafka"
	"github.com/bilawal506/online-mart/internal/infrastructure/tracing"
	"github.com/bilawal506/online-mart/internal/repository"
	"github.com/bilawal506/online-mart/internal/wire"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	HeaderError        = "x-error"
	HeaderSourceTopic  = "x-source-topic"
	HeaderSourceOffset = "x-source-offset"

	commitTimeout = 5 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a fresh subscription. It is called again after every
// broker error.
type ReaderFactory func() (MessageReader, error)

type DeadLetterSender interface {
	Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) (kafkamq.Acknowledgment, error)
}

type Options struct {
	DeadLetterTopic    string
	MaxStoreRetries    int
	StoreRetryInterval time.Duration
	ReconnectInterval  time.Duration
	MaxReconnectDelay  time.Duration
}

func OptionsFromConfig(conf config.KafkaConfig) Options {
	return Options{
		DeadLetterTopic:    conf.DeadLetterTopic,
		MaxStoreRetries:    conf.MaxStoreRetries,
		StoreRetryInterval: 200 * time.Millisecond,
		ReconnectInterval:  500 * time.Millisecond,
		MaxReconnectDelay:  30 * time.Second,
	}
}

// Consumer applies product events from the broker to the store. Offsets are
// committed only after a message was applied, skipped as malformed, or handed
// to the dead-letter topic, so delivery is at-least-once.
type Consumer struct {
	newReader  ReaderFactory
	store      repository.ProductStore
	deadLetter DeadLetterSender
	opts       Options

	state atomic.Int32

	mu      sync.Mutex
	reader  MessageReader
	lastErr error

	processed    atomic.Int64
	skipped      atomic.Int64
	deadLettered atomic.Int64
}

func NewConsumer(newReader ReaderFactory, store repository.ProductStore, deadLetter DeadLetterSender, opts Options) *Consumer {
	c := &Consumer{
		newReader:  newReader,
		store:      store,
		deadLetter: deadLetter,
		opts:       opts,
	}
	c.setState(StateStarting)

	return c
}

func (c *Consumer) State() State {
	return State(c.state.Load())
}

func (c *Consumer) setState(s State) {
	c.state.Store(int32(s))
	stateGauge.Set(float64(s))
}

func (c *Consumer) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

func (c *Consumer) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.setState(StateErrored)
}

// Run consumes until ctx is cancelled. Broker failures close the reader and
// reopen it after a capped exponential delay. Run returns nil once stopped.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.closeReader()

	reconnect := backoff.NewExponentialBackOff()
	reconnect.InitialInterval = c.opts.ReconnectInterval
	reconnect.MaxInterval = c.opts.MaxReconnectDelay
	reconnect.MaxElapsedTime = 0

	for ctx.Err() == nil {
		c.setState(StateStarting)

		err := c.subscribe(ctx, reconnect)
		if ctx.Err() != nil {
			break
		}

		c.closeReader()
		c.recordError(err)

		delay := reconnect.NextBackOff()
		log.Error().Err(err).Str("component", "Consumer").Dur("retry_in", delay).Msg("consumer failed, reconnecting")

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}

	c.setState(StateStopping)
	c.closeReader()
	c.setState(StateStopped)
	log.Info().Str("component", "Consumer").Msg("consumer stopped")

	return nil
}

func (c *Consumer) subscribe(ctx context.Context, reconnect backoff.BackOff) error {
	reader, err := c.newReader()
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}

	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	c.setState(StateSubscribed)

	for {
		c.setState(StateReceiving)

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch message: %w", err)
		}
		reconnect.Reset()

		c.setState(StateProcessing)
		log.Info().Str("component", "Consumer").Str("topic", msg.Topic).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("message received")

		if err := c.handle(ctx, msg); err != nil {
			return err
		}

		// The message is already applied; a shutdown must not undo the commit.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handle returns an error only when the message must not be committed.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (err error) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, tracing.NewHeaderCarrier(&msg.Headers))
	ctx, span := otel.Tracer("product-consumer").Start(ctx, "consume "+msg.Topic)
	span.SetAttributes(attribute.Int64("messaging.kafka.offset", msg.Offset))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	product, op, err := wire.Decode(msg.Value)
	if err != nil {
		log.Warn().Err(err).Str("component", "Consumer").Int64("offset", msg.Offset).Msg("skipping malformed message")
		c.skipped.Add(1)
		messagesTotal.WithLabelValues("malformed").Inc()
		return nil
	}

	err = c.applyWithRetry(ctx, product, op)
	if err == nil {
		c.processed.Add(1)
		messagesTotal.WithLabelValues("processed").Inc()
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if dlqErr := c.sendToDeadLetter(ctx, msg, err); dlqErr != nil {
		messagesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("dead-letter offset %d: %w", msg.Offset, dlqErr)
	}

	log.Error().Err(err).Str("component", "Consumer").Int64("id", product.ID).Str("operation", op.String()).Msg("message dead-lettered")
	c.deadLettered.Add(1)
	messagesTotal.WithLabelValues("dead_lettered").Inc()

	return nil
}

func (c *Consumer) applyWithRetry(ctx context.Context, product domain.Product, op wire.Operation) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.StoreRetryInterval
	bo.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++

		err := c.apply(ctx, product, op)
		if err != nil {
			log.Warn().Err(err).Str("component", "Consumer").Int64("id", product.ID).Int("attempt", attempt).Msg("store write failed")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.MaxStoreRetries)), ctx))
}

func (c *Consumer) apply(ctx context.Context, product domain.Product, op wire.Operation) error {
	switch op {
	case wire.OperationCreate:
		return c.store.UpsertProduct(ctx, product)
	case wire.OperationUpdate:
		err := c.store.UpdateProduct(ctx, product)
		if errors.Is(err, errs.ErrProductNotFound) {
			return c.store.UpsertProduct(ctx, product)
		}
		return err
	case wire.OperationDelete:
		_, err := c.store.DeleteProduct(ctx, product.ID)
		if errors.Is(err, errs.ErrProductNotFound) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported operation %s", op)
	}
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.deadLetter == nil || c.opts.DeadLetterTopic == "" {
		return errors.New("no dead-letter topic configured")
	}

	_, err := c.deadLetter.Send(ctx, c.opts.DeadLetterTopic, msg.Key, msg.Value,
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderSourceTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderSourceOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)

	return err
}

func (c *Consumer) closeReader() {
	c.mu.Lock()
	reader := c.reader
	c.reader = nil
	c.mu.Unlock()

	if reader == nil {
		return
	}

	if err := reader.Close(); err != nil {
		log.Warn().Err(err).Str("component", "Consumer").Msg("failed to close reader")
	}
}

// ReportLag copies the lag of the current reader into the lag gauge. Readers
// that keep no statistics are ignored.
func (c *Consumer) ReportLag() {
	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()

	statsReader, ok := reader.(interface{ Stats() kafka.ReaderStats })
	if !ok {
		return
	}

	lagGauge.Set(float64(statsReader.Stats().Lag))
}
