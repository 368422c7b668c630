package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration, loaded once at startup.
type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Scylla      ScyllaConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Clickhouse  ClickhouseConfig
	SMTP        SMTPConfig
	JWT         JWTConfig
	OTP         OTPConfig
	Bucketing   BucketingConfig
	KMS         KMSConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	TLSPort        int
	EnableTLS      bool
	AutoCert       bool
	AutoCertDir    string
	Domain         string
	Email          string
	CertFile       string
	KeyFile        string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
	// TTL for cached principal records; lookups fall through to the store.
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type JWTConfig struct {
	Secret string
	// StudentTokenTTL has no default: the student session length is a product
	// decision and must be set explicitly.
	StudentTokenTTL time.Duration
	DriverTokenTTL  time.Duration
}

type OTPConfig struct {
	TTL    time.Duration
	Digits int
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	// LocalMasterKey is a base64 32-byte key used when KMS is disabled
	// (development and tests). Empty means a random per-process key.
	LocalMasterKey string
}

// LoadConfig reads .env (if present) and the process environment into a
// Config. It returns an error for missing required values so the process
// fails fast instead of issuing tokens with a zero TTL.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 5000),
			TLSPort:        getEnvInt("SERVER_TLS_PORT", 5443),
			EnableTLS:      getEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:       getEnvBool("SERVER_AUTO_CERT", false),
			AutoCertDir:    getEnv("SERVER_AUTOCERT_DIR", "./certs"),
			Domain:         getEnv("SERVER_DOMAIN", "localhost"),
			Email:          getEnv("SERVER_ADMIN_EMAIL", ""),
			CertFile:       getEnv("SERVER_CERT_FILE", ""),
			KeyFile:        getEnv("SERVER_KEY_FILE", ""),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "https://*,http://*")),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Scylla: ScyllaConfig{
			Nodes:    splitList(getEnv("SCYLLA_NODES", "127.0.0.1:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "boride"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_AUTH_TOPIC", "auth-events"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "boride_audit"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@boride.app"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			StudentTokenTTL: getEnvDuration("STUDENT_TOKEN_TTL", 0),
			DriverTokenTTL:  getEnvDuration("DRIVER_TOKEN_TTL", 7*24*time.Hour),
		},
		OTP: OTPConfig{
			TTL:    getEnvDuration("OTP_TTL", 15*time.Minute),
			Digits: getEnvInt("OTP_DIGITS", 6),
		},
		Bucketing: BucketingConfig{
			UserBuckets:  getEnvInt("USER_BUCKETS", 64),
			EventBuckets: getEnvInt("EVENT_BUCKETS", 16),
		},
		KMS: KMSConfig{
			Enabled:        getEnvBool("KMS_ENABLED", false),
			KeyID:          getEnv("KMS_KEY_ID", ""),
			LocalMasterKey: getEnv("LOCAL_MASTER_KEY", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.StudentTokenTTL <= 0 {
		return fmt.Errorf("STUDENT_TOKEN_TTL is required (e.g. 24h)")
	}
	if c.KMS.Enabled && c.KMS.KeyID == "" {
		return fmt.Errorf("KMS_KEY_ID is required when KMS_ENABLED=true")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
