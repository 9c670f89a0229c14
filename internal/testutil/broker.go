// Package testutil provides an in-memory broker that stands in for Kafka in
// tests. A Broker is both a message writer for the producer and a source of
// readers for the consumer, with one committed position per topic.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

var ErrReaderClosed = errors.New("reader closed")

type Broker struct {
	mu        sync.Mutex
	topics    map[string][]kafka.Message
	committed map[string]int64
	notify    chan struct{}

	writeErr  error
	commitErr error
}

func NewBroker() *Broker {
	return &Broker{
		topics:    map[string][]kafka.Message{},
		committed: map[string]int64{},
		notify:    make(chan struct{}),
	}
}

func (b *Broker) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writeErr != nil {
		return b.writeErr
	}

	for _, msg := range msgs {
		msg.Offset = int64(len(b.topics[msg.Topic]))
		b.topics[msg.Topic] = append(b.topics[msg.Topic], msg)
	}

	close(b.notify)
	b.notify = make(chan struct{})

	return nil
}

func (b *Broker) Close() error {
	return nil
}

// FailWrites makes every following write return err. A nil err heals the broker.
func (b *Broker) FailWrites(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writeErr = err
}

// FailCommits makes every following commit return err. A nil err heals the broker.
func (b *Broker) FailCommits(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commitErr = err
}

func (b *Broker) Messages(topic string) []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]kafka.Message(nil), b.topics[topic]...)
}

// Committed returns the next offset the group will read from topic.
func (b *Broker) Committed(topic string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.committed[topic]
}

// NewReader returns a reader positioned at the committed offset of topic.
func (b *Broker) NewReader(topic string) *Reader {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &Reader{broker: b, topic: topic, next: b.committed[topic], closed: make(chan struct{})}
}

type Reader struct {
	broker    *Broker
	topic     string
	next      int64
	closed    chan struct{}
	closeOnce sync.Once
}

func (r *Reader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.broker.mu.Lock()
		messages := r.broker.topics[r.topic]
		if r.next < int64(len(messages)) {
			msg := messages[r.next]
			r.next++
			r.broker.mu.Unlock()
			return msg, nil
		}
		notify := r.broker.notify
		r.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-r.closed:
			return kafka.Message{}, ErrReaderClosed
		case <-notify:
		}
	}
}

func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.broker.mu.Lock()
	defer r.broker.mu.Unlock()

	if r.broker.commitErr != nil {
		return r.broker.commitErr
	}

	for _, msg := range msgs {
		if msg.Offset+1 > r.broker.committed[msg.Topic] {
			r.broker.committed[msg.Topic] = msg.Offset + 1
		}
	}

	return nil
}

func (r *Reader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}
