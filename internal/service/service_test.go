package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	kafkamq "github.com/bilawal506/online-mart/internal/infrastructure/message-queue/kafka"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Connect(ctx, config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DBName: filepath.Join(t.TempDir(), "mart.db"),
	})
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.EnsureSchema(ctx, db))

	return db
}

type sentMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

type fakeWriter struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (w *fakeWriter) Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) (kafkamq.Acknowledgment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return kafkamq.Acknowledgment{}, w.err
	}

	w.sent = append(w.sent, sentMessage{Topic: topic, Key: key, Value: value})
	return kafkamq.Acknowledgment{Topic: topic, Key: key, Attempts: 1}, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	mails []sentMail
}

func (m *fakeMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mails = append(m.mails, sentMail{To: to, Subject: subject, Body: htmlBody})
	return m.err
}

func (m *fakeMailer) sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]sentMail(nil), m.mails...)
}
