package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	Signing  SigningConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"15m"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"45m"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type PipelineConfig struct {
	ScratchDir          string        `envconfig:"PIPELINE_SCRATCH_DIR" default:"/tmp/vodpipe"`
	MaxUploadBytes      int64         `envconfig:"PIPELINE_MAX_UPLOAD_BYTES" default:"524288000"`
	TranscodeTimeout    time.Duration `envconfig:"PIPELINE_TRANSCODE_TIMEOUT" default:"30m"`
	SegmentDuration     int           `envconfig:"PIPELINE_SEGMENT_DURATION" default:"10"`
	UploadConcurrency   int           `envconfig:"PIPELINE_UPLOAD_CONCURRENCY" default:"4"`
	StorageMaxRetries   int           `envconfig:"PIPELINE_STORAGE_MAX_RETRIES" default:"3"`
	StorageRetryBackoff time.Duration `envconfig:"PIPELINE_STORAGE_RETRY_BACKOFF" default:"500ms"`
}

type SigningConfig struct {
	// Secret is the shared HMAC key. Rotating it invalidates every
	// outstanding playback token at once.
	Secret   string        `envconfig:"SIGNING_SECRET" required:"true"`
	TokenTTL time.Duration `envconfig:"SIGNING_TOKEN_TTL" default:"6h"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"vodpipe"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"vodpipe"`
	DBName   string `envconfig:"POSTGRES_DB" default:"vodpipe"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" required:"true"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" required:"true"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" required:"true"`
	Bucket    string `envconfig:"MINIO_BUCKET" required:"true"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// PublicBaseURL is the externally reachable prefix that canonical
	// manifest URLs are built from (typically a CDN fronting the
	// bucket). Required so canonical URLs never leak the internal
	// endpoint.
	PublicBaseURL string `envconfig:"MINIO_PUBLIC_BASE_URL" required:"true"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"vodpipe"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"vodpipe"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
