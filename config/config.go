package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"collect-api"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:"collect"`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"collect"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10m"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`

	// Auth Enabled - when false, X-User-ID and X-User-Role headers are trusted for testing
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis Enabled - redis accelerates reference allocation and gates the sweep
	RedisEnabled bool `env:"REDIS_ENABLED" env-default:"false"`
	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Kafka Enabled - when false, lifecycle events are logged and dropped
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"false"`
	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for lifecycle events
	KafkaLifecycleTopic string `env:"KAFKA_LIFECYCLE_TOPIC" env-default:"collect-lifecycle"`

	// Rate limit: max write requests per caller per window (0 disables)
	RateLimitRequests int `env:"RATE_LIMIT_REQUESTS" env-default:"30"`
	// Rate limit window
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1h"`

	// Sweep settings
	// Enable/disable the overdue pickup sweep
	SweepEnabled bool `env:"SWEEP_ENABLED" env-default:"true"`
	// Sweep poll interval
	SweepPollInterval time.Duration `env:"SWEEP_POLL_INTERVAL" env-default:"5m"`
	// Sweep lock TTL
	SweepLockTTL time.Duration `env:"SWEEP_LOCK_TTL" env-default:"2m"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}

// Load reads configuration from the environment, with .env as a local
// development override.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
