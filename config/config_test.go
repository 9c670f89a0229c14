package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateNewConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVICE_PORT", "DB_DRIVER", "DATABASE_URL", "BROKER_TOPIC", "CONSUMER_GROUP", "ACCESS_TOKEN_EXPIRE_MINUTES", "MAIL_PORT", "PUBLISH_TIMEOUT"} {
		t.Setenv(key, "")
	}

	conf := CreateNewConfig("8000")

	assert.Equal(t, "8000", conf.ServicePort)
	assert.Equal(t, "postgres", conf.DatabaseConfig.Driver)
	assert.Equal(t, "product", conf.KafkaConfig.BrokerTopic)
	assert.Equal(t, "my-group", conf.KafkaConfig.ConsumerGroup)
	assert.Equal(t, "product.dlq", conf.KafkaConfig.DeadLetterTopic)
	assert.Equal(t, 30, conf.JWTConfig.AccessTokenExpireMinutes)
	assert.Equal(t, 587, conf.MailConfig.Port)
	assert.Equal(t, 5*time.Second, conf.KafkaConfig.PublishTimeout)
}

func TestCreateNewConfigOverrides(t *testing.T) {
	t.Setenv("SERVICE_PORT", "9999")
	t.Setenv("BROKER_TOPIC", "product-test")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("MAIL_STARTTLS", "false")
	t.Setenv("PUBLISH_TIMEOUT", "250ms")
	t.Setenv("MAX_STORE_RETRIES", "not-a-number")

	conf := CreateNewConfig("8000")

	assert.Equal(t, "9999", conf.ServicePort)
	assert.Equal(t, "product-test", conf.KafkaConfig.BrokerTopic)
	assert.Equal(t, 5, conf.JWTConfig.AccessTokenExpireMinutes)
	assert.False(t, conf.MailConfig.StartTLS)
	assert.Equal(t, 250*time.Millisecond, conf.KafkaConfig.PublishTimeout)
	assert.Equal(t, 3, conf.KafkaConfig.MaxStoreRetries)
}

func TestDatabaseConfigDSN(t *testing.T) {
	testCases := []struct {
		Name     string
		Config   DatabaseConfig
		Expected string
	}{
		{
			Name:     "Database URL wins",
			Config:   DatabaseConfig{Driver: "postgres", URL: "postgres://u:p@db/mart", DBHost: "ignored"},
			Expected: "postgres://u:p@db/mart",
		},
		{
			Name:     "Postgres from parts",
			Config:   DatabaseConfig{Driver: "postgres", DBHost: "db", DBPort: "5432", DBUsername: "u", DBPassword: "p", DBName: "mart"},
			Expected: "host=db port=5432 user=u password=p dbname=mart sslmode=disable",
		},
		{
			Name:     "SQLite file",
			Config:   DatabaseConfig{Driver: "sqlite3", DBName: "mart.db"},
			Expected: "mart.db",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, tc.Config.DSN())
		})
	}
}
