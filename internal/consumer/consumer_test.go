package consumer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/domain"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	kafkamq "github.com/bilawal506/online-mart/internal/infrastructure/message-queue/kafka"
	"github.com/bilawal506/online-mart/internal/repository"
	"github.com/bilawal506/online-mart/internal/testutil"
	"github.com/bilawal506/online-mart/internal/wire"
	pkgdto "github.com/bilawal506/online-mart/pkg/dto"
	"github.com/bilawal506/online-mart/pkg/errs"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	topic    = "product"
	dlqTopic = "product.dlq"
	waitFor  = 5 * time.Second
	tick     = 10 * time.Millisecond
)

var errStoreDown = errors.New("database is locked")

type fakeStore struct {
	mu         sync.Mutex
	products   map[int64]domain.Product
	failures   int
	panicsLeft int
	writes     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[int64]domain.Product{}}
}

func (s *fakeStore) setFailures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = n
}

// write must be called with s.mu held.
func (s *fakeStore) write() error {
	s.writes++
	if s.panicsLeft > 0 {
		s.panicsLeft--
		panic("store exploded")
	}
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return errStoreDown
	}
	return nil
}

func (s *fakeStore) UpsertProduct(ctx context.Context, data domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(); err != nil {
		return err
	}
	s.products[data.ID] = data
	return nil
}

func (s *fakeStore) UpdateProduct(ctx context.Context, data domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(); err != nil {
		return err
	}
	if _, ok := s.products[data.ID]; !ok {
		return errs.ErrProductNotFound
	}
	s.products[data.ID] = data
	return nil
}

func (s *fakeStore) DeleteProduct(ctx context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(); err != nil {
		return domain.Product{}, err
	}
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, errs.ErrProductNotFound
	}
	delete(s.products, id)
	return p, nil
}

func (s *fakeStore) GetProductByID(ctx context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, errs.ErrProductNotFound
	}
	return p, nil
}

func (s *fakeStore) GetProducts(ctx context.Context, filter pkgdto.Filter) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := []domain.Product{}
	for _, p := range s.products {
		data = append(data, p)
	}
	return data, nil
}

func (s *fakeStore) GetProductsByField(ctx context.Context, field string, value string) ([]domain.Product, error) {
	return nil, errs.ErrClient
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.products)
}

type failingDeadLetter struct{}

func (failingDeadLetter) Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) (kafkamq.Acknowledgment, error) {
	return kafkamq.Acknowledgment{}, errs.ErrPublish
}

func testOptions() Options {
	return Options{
		DeadLetterTopic:    dlqTopic,
		MaxStoreRetries:    2,
		StoreRetryInterval: time.Millisecond,
		ReconnectInterval:  5 * time.Millisecond,
		MaxReconnectDelay:  20 * time.Millisecond,
	}
}

type harness struct {
	broker  *testutil.Broker
	opened  atomic.Int64
	factory ReaderFactory
}

func newHarness() *harness {
	h := &harness{broker: testutil.NewBroker()}
	h.factory = func() (MessageReader, error) {
		h.opened.Add(1)
		return h.broker.NewReader(topic), nil
	}
	return h
}

func (h *harness) publish(t *testing.T, payloads ...[]byte) {
	t.Helper()

	for _, p := range payloads {
		require.NoError(t, h.broker.WriteMessages(context.Background(), kafka.Message{Topic: topic, Value: p}))
	}
}

func (h *harness) deadLetterProducer() *kafkamq.Producer {
	return kafkamq.NewProducer(config.KafkaConfig{PublishTimeout: time.Second}, h.broker)
}

func startConsumer(t *testing.T, c *Consumer) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("consumer did not stop")
		}
	}
}

func create(id int64, name string) []byte {
	return wire.Encode(domain.Product{ID: id, Name: name, Price: 100 * id, Category: "electronics"}, wire.OperationCreate)
}

func TestConsumerAppliesCreate(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	stop := startConsumer(t, c)
	h.publish(t, create(1, "Laptop"))

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	p, err := store.GetProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, int64(1), c.processed.Load())
	assert.Equal(t, StateStopped, c.State())
}

func TestConsumerSkipsMalformedMessages(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	h.publish(t, []byte{0xff, 0xff, 0xff}, []byte("not a product"), create(1, "Laptop"))
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 3 }, waitFor, tick)
	stop()

	assert.Equal(t, 1, store.count())
	assert.Equal(t, int64(2), c.skipped.Load())
	assert.Equal(t, int64(1), c.processed.Load())
	assert.Empty(t, h.broker.Messages(dlqTopic))
}

func TestConsumerCreateTwiceLeavesOneRow(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, DBName: filepath.Join(t.TempDir(), "mart.db")})
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	require.NoError(t, database.EnsureSchema(ctx, db))

	h := newHarness()
	repo := repository.CreateNewProductRepository(db)
	c := NewConsumer(h.factory, repo, h.deadLetterProducer(), testOptions())

	h.publish(t, create(7, "Phone"), create(7, "Phone"))
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 2 }, waitFor, tick)
	stop()

	products, err := repo.GetProducts(ctx, pkgdto.Filter{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(7), products[0].ID)
}

func TestConsumerUpdateAndDelete(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	h.publish(t,
		wire.Encode(domain.Product{ID: 1, Name: "Desk", Price: 50, Category: "furniture"}, wire.OperationUpdate),
		create(2, "Chair"),
		wire.Encode(domain.Product{ID: 2}, wire.OperationDelete),
		wire.Encode(domain.Product{ID: 3}, wire.OperationDelete),
	)
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 4 }, waitFor, tick)
	stop()

	p, err := store.GetProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Desk", p.Name)

	_, err = store.GetProductByID(context.Background(), 2)
	assert.ErrorIs(t, err, errs.ErrProductNotFound)
	assert.Equal(t, int64(4), c.processed.Load())
}

func TestConsumerRetriesStoreWrites(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	store.setFailures(2)
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	h.publish(t, create(1, "Laptop"))
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	assert.Equal(t, 1, store.count())
	assert.Equal(t, int64(1), c.processed.Load())
	assert.Empty(t, h.broker.Messages(dlqTopic))
}

func TestConsumerDeadLettersAfterRetries(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	store.setFailures(-1)
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	payload := create(1, "Laptop")
	h.publish(t, payload)
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	dead := h.broker.Messages(dlqTopic)
	require.Len(t, dead, 1)
	assert.Equal(t, payload, dead[0].Value)

	headers := map[string]string{}
	for _, header := range dead[0].Headers {
		headers[header.Key] = string(header.Value)
	}
	assert.Equal(t, errStoreDown.Error(), headers[HeaderError])
	assert.Equal(t, topic, headers[HeaderSourceTopic])
	assert.Equal(t, "0", headers[HeaderSourceOffset])

	assert.Equal(t, int64(1), c.deadLettered.Load())
	assert.Equal(t, 3, store.writes)
}

func TestConsumerRedeliversWhenDeadLetterFails(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	store.setFailures(-1)
	c := NewConsumer(h.factory, store, failingDeadLetter{}, testOptions())

	h.publish(t, create(1, "Laptop"))
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.opened.Load() >= 2 }, waitFor, tick)
	assert.Equal(t, int64(0), h.broker.Committed(topic))
	assert.ErrorIs(t, c.LastError(), errs.ErrPublish)

	store.setFailures(0)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	assert.Equal(t, 1, store.count())
}

func TestConsumerReconnectsAfterCommitFailure(t *testing.T) {
	h := newHarness()
	store := newFakeStore()
	c := NewConsumer(h.factory, store, h.deadLetterProducer(), testOptions())

	h.broker.FailCommits(errors.New("group coordinator not available"))
	h.publish(t, create(1, "Laptop"))
	stop := startConsumer(t, c)

	assert.Eventually(t, func() bool { return h.opened.Load() >= 2 }, waitFor, tick)

	h.broker.FailCommits(nil)

	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	assert.Equal(t, 1, store.count())
	assert.Equal(t, StateStopped, c.State())
}

func TestConsumerReconnectsWhenReaderCannotOpen(t *testing.T) {
	h := newHarness()
	var attempts atomic.Int64
	factory := func() (MessageReader, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("no brokers available")
		}
		return h.factory()
	}

	c := NewConsumer(factory, newFakeStore(), h.deadLetterProducer(), testOptions())
	stop := startConsumer(t, c)

	h.publish(t, create(1, "Laptop"))
	assert.Eventually(t, func() bool { return h.broker.Committed(topic) == 1 }, waitFor, tick)
	stop()

	assert.GreaterOrEqual(t, attempts.Load(), int64(3))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "receiving", StateReceiving.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", State(42).String())
}
