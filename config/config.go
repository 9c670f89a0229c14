package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Environment      string
	ServicePort      string
	MetricsPort      string
	DatabaseConfig   DatabaseConfig
	JWTConfig        JWTConfig
	KafkaConfig      KafkaConfig
	MailConfig       MailConfig
	TracingConfig    TracingConfig
	ResetPasswordURL string
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	DBHost     string
	DBPort     string
	DBName     string
	DBUsername string
	DBPassword string
}

type JWTConfig struct {
	JWTSecret                string
	AccessTokenExpireMinutes int
	ResetTokenExpireMinutes  int
}

type KafkaConfig struct {
	BrokerAddress     string
	BrokerTopic       string
	ConsumerGroup     string
	DeadLetterTopic   string
	PublishTimeout    time.Duration
	MaxPublishRetries int
	MaxStoreRetries   int
}

type MailConfig struct {
	Username string
	Password string
	From     string
	Server   string
	Port     int
	StartTLS bool
	SSLTLS   bool
}

type TracingConfig struct {
	CollectorHost string
}

// CreateNewConfig reads the process environment once, after loading an optional
// .env file. The service port default differs per binary so it is passed in.
func CreateNewConfig(defaultServicePort string) *Config {
	godotenv.Load(".env")

	conf := Config{
		Environment: getEnv("ENVIRONMENT", "production"),
		ServicePort: getEnv("SERVICE_PORT", defaultServicePort),
		MetricsPort: os.Getenv("METRICS_PORT"),
		DatabaseConfig: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			URL:        os.Getenv("DATABASE_URL"),
			DBHost:     os.Getenv("DB_HOST"),
			DBPort:     getEnv("DB_PORT", "5432"),
			DBName:     os.Getenv("DB_NAME"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		JWTConfig: JWTConfig{
			JWTSecret:                os.Getenv("JWT_SECRET"),
			AccessTokenExpireMinutes: getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
			ResetTokenExpireMinutes:  getEnvInt("RESET_TOKEN_EXPIRE_MINUTES", 15),
		},
		KafkaConfig: KafkaConfig{
			BrokerAddress:     getEnv("BROKER_ADDRESS", "broker:19092"),
			BrokerTopic:       getEnv("BROKER_TOPIC", "product"),
			ConsumerGroup:     getEnv("CONSUMER_GROUP", "my-group"),
			DeadLetterTopic:   getEnv("DEAD_LETTER_TOPIC", "product.dlq"),
			PublishTimeout:    getEnvDuration("PUBLISH_TIMEOUT", 5*time.Second),
			MaxPublishRetries: getEnvInt("MAX_PUBLISH_RETRIES", 3),
			MaxStoreRetries:   getEnvInt("MAX_STORE_RETRIES", 3),
		},
		MailConfig: MailConfig{
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
			Server:   os.Getenv("MAIL_SERVER"),
			Port:     getEnvInt("MAIL_PORT", 587),
			StartTLS: getEnvBool("MAIL_STARTTLS", true),
			SSLTLS:   getEnvBool("MAIL_SSL_TLS", false),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
		ResetPasswordURL: getEnv("RESET_PASSWORD_URL", "http://localhost:8001/reset-password"),
	}

	return &conf
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection string
// assembled from the DB_* variables.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	if c.Driver == "sqlite3" {
		return c.DBName
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", c.DBHost, c.DBPort, c.DBUsername, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Err(err).Str("component", "CreateNewConfig").Str("key", key).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Err(err).Str("component", "CreateNewConfig").Str("key", key).Msg("invalid boolean, using default")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Err(err).Str("component", "CreateNewConfig").Str("key", key).Msg("invalid duration, using default")
		return fallback
	}
	return d
}
