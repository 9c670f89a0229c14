package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bilawal506/online-mart/config"
	"github.com/bilawal506/online-mart/internal/infrastructure/database"
	"github.com/bilawal506/online-mart/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupTestConfig(t *testing.T, servicePort string) *config.Config {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.Join(t.TempDir(), "mart.db"))

	return &config.Config{
		Environment: "test",
		ServicePort: servicePort,
		DatabaseConfig: config.DatabaseConfig{
			Driver: database.DriverSQLite,
			DBName: dsn,
		},
		JWTConfig: config.JWTConfig{
			JWTSecret:                testSecret,
			AccessTokenExpireMinutes: 30,
			ResetTokenExpireMinutes:  15,
		},
		KafkaConfig: config.KafkaConfig{
			BrokerTopic:       "product",
			ConsumerGroup:     "my-group",
			DeadLetterTopic:   "product.dlq",
			PublishTimeout:    time.Second,
			MaxPublishRetries: 0,
			MaxStoreRetries:   1,
		},
		ResetPasswordURL: "http://localhost:" + servicePort + "/reset-password",
	}
}

func accessToken(t *testing.T, username string, role string) string {
	t.Helper()

	token, err := utils.CreateAccessToken(username, role, testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

type request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	Token       string
}

func serve(e *echo.Echo, r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.Method, r.Path, r.Body)
	if r.ContentType != "" {
		req.Header.Set(echo.HeaderContentType, r.ContentType)
	}
	if r.Token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.Token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

type envelope struct {
	Status  interface{}     `json:"status"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
