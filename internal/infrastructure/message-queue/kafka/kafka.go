package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilawal506/online-mart/config"
	circuitbreaker "github.com/bilawal506/online-mart/internal/infrastructure/circuit-breaker"
	"github.com/bilawal506/online-mart/internal/infrastructure/tracing"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
)

var ErrProducerClosed = fmt.Errorf("%w: producer closed", errs.ErrPublish)

var publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "product_publish_total",
	Help: "Messages published to the broker, by topic and result.",
}, []string{"topic", "result"})

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Acknowledgment struct {
	Topic    string
	Key      []byte
	Attempts int
}

// Producer publishes messages synchronously: Send returns only after every
// in-sync replica acknowledged the write or all retries failed. It is safe for
// concurrent use and meant to be shared by the whole process.
type Producer struct {
	writer          MessageWriter
	breaker         *gobreaker.CircuitBreaker[[]byte]
	publishTimeout  time.Duration
	maxRetries      int
	initialInterval time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewProducer(conf config.KafkaConfig, writer MessageWriter) *Producer {
	return &Producer{
		writer:          writer,
		breaker:         circuitbreaker.CreateCircuitBreaker[[]byte]("kafka-producer", 10*time.Second),
		publishTimeout:  conf.PublishTimeout,
		maxRetries:      conf.MaxPublishRetries,
		initialInterval: 100 * time.Millisecond,
	}
}

// CreateKafkaProducer builds a producer backed by a kafka.Writer. The writer
// does not retry on its own, Send does.
func CreateKafkaProducer(conf *config.Config) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.KafkaConfig.BrokerAddress),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            1,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return NewProducer(conf.KafkaConfig, writer)
}

func (p *Producer) Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) (Acknowledgment, error) {
	if p.closed.Load() {
		publishTotal.WithLabelValues(topic, "failure").Inc()
		return Acknowledgment{}, ErrProducerClosed
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: append([]kafka.Header(nil), headers...),
	}
	otel.GetTextMapPropagator().Inject(ctx, tracing.NewHeaderCarrier(&msg.Headers))

	attempts := 0
	operation := func() error {
		attempts++

		_, err := p.breaker.Execute(func() ([]byte, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
			defer cancel()

			return nil, p.writer.WriteMessages(attemptCtx, msg)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("component", "Send").Str("topic", topic).Int("attempt", attempts).Msg("publish attempt failed")
		}

		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.maxRetries)), ctx))
	if err != nil {
		publishTotal.WithLabelValues(topic, "failure").Inc()
		return Acknowledgment{}, fmt.Errorf("%w: topic %s after %d attempt(s): %v", errs.ErrPublish, topic, attempts, err)
	}

	publishTotal.WithLabelValues(topic, "success").Inc()

	return Acknowledgment{Topic: topic, Key: key, Attempts: attempts}, nil
}

func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeErr = p.writer.Close()
	})

	return p.closeErr
}

// CreateKafkaReader returns a consumer-group reader that starts from the
// earliest offset when the group has no committed position. Offsets are
// committed explicitly with CommitMessages.
func CreateKafkaReader(conf *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{conf.KafkaConfig.BrokerAddress},
		Topic:          conf.KafkaConfig.BrokerTopic,
		GroupID:        conf.KafkaConfig.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
}
