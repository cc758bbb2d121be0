package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Database  DatabaseConfig
	MinIO     MinIOConfig
	RabbitMQ  RabbitMQConfig
	Redis     RedisConfig
	YouTube   YouTubeConfig
	OpenAI    OpenAIConfig
	Places    PlacesConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Export    ExportConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	Prefetch        int           `envconfig:"WORKER_PREFETCH" default:"4"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
	MetricsPort     int           `envconfig:"WORKER_METRICS_PORT" default:"9091"`
}

type DatabaseConfig struct {
	Host        string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port        int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User        string `envconfig:"POSTGRES_USER" default:"tripreel"`
	Password    string `envconfig:"POSTGRES_PASSWORD" default:"tripreel"`
	DBName      string `envconfig:"POSTGRES_DB" default:"tripreel"`
	SSLMode     string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	AutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE" default:"true"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"MINIO_BUCKET" default:"reels"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	CreateBucket   bool   `envconfig:"MINIO_CREATE_BUCKET" default:"true"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"tripreel"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"tripreel"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

// RedisConfig configures the shared cache tier. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// YouTubeConfig configures the YouTube Data API client. An empty key leaves
// search disabled and every search returns no videos.
type YouTubeConfig struct {
	APIKey     string        `envconfig:"YOUTUBE_API_KEY"`
	Timeout    time.Duration `envconfig:"YOUTUBE_TIMEOUT" default:"10s"`
	MaxResults int64         `envconfig:"YOUTUBE_MAX_RESULTS" default:"25"`
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"OPENAI_API_KEY"`
	Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string        `envconfig:"OPENAI_BASE_URL"`
	Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"20s"`
}

type PlacesConfig struct {
	APIKey  string        `envconfig:"GOOGLE_PLACES_API_KEY"`
	Timeout time.Duration `envconfig:"GOOGLE_PLACES_TIMEOUT" default:"10s"`
}

type CacheConfig struct {
	VideosMaxEntries      int           `envconfig:"CACHE_VIDEOS_MAX_ENTRIES" default:"1000"`
	VideosTTL             time.Duration `envconfig:"CACHE_VIDEOS_TTL" default:"168h"`
	CollectionsMaxEntries int           `envconfig:"CACHE_COLLECTIONS_MAX_ENTRIES" default:"500"`
	CollectionsTTL        time.Duration `envconfig:"CACHE_COLLECTIONS_TTL" default:"168h"`
	AnalysesMaxEntries    int           `envconfig:"CACHE_ANALYSES_MAX_ENTRIES" default:"500"`
	AnalysesTTL           time.Duration `envconfig:"CACHE_ANALYSES_TTL" default:"720h"`
	PlacesMaxEntries      int           `envconfig:"CACHE_PLACES_MAX_ENTRIES" default:"1000"`
	PlacesTTL             time.Duration `envconfig:"CACHE_PLACES_TTL" default:"720h"`
}

// RateLimitConfig bounds requests per client IP on the /v1 API.
type RateLimitConfig struct {
	Enabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst   int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

type ExportConfig struct {
	DownloadURLExpiry time.Duration `envconfig:"EXPORT_DOWNLOAD_URL_EXPIRY" default:"1h"`
	ClipSeconds       int           `envconfig:"EXPORT_CLIP_SECONDS" default:"8"`
	MaxReelSeconds    int           `envconfig:"EXPORT_MAX_REEL_SECONDS" default:"90"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
