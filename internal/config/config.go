package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Notification channels.
const (
	NotifyLog   = "log"
	NotifyKafka = "kafka"
	NotifyRedis = "redis"
)

type Config struct {
	// Server-side settings
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	// Blob store
	BlobDir           string `env:"BLOB_DIR"`
	BlobMaxSizeMB     int    `env:"BLOB_MAX_MB"`
	UploadConcurrency int    `env:"UPLOAD_CONCURRENCY"`

	// Low-stock monitoring
	LowStockThreshold float64       `env:"LOW_STOCK_THRESHOLD"`
	RearmOnRestock    bool          `env:"REARM_ON_RESTOCK"`
	NotifyChannel     string        `env:"NOTIFY_CHANNEL"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE"`
	NotifyWorkers     int           `env:"NOTIFY_WORKERS"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT"`
	KafkaBroker       string        `env:"KAFKA_BROKER"`
	KafkaTopic        string        `env:"KAFKA_TOPIC"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisStream       string        `env:"REDIS_STREAM"`

	// Orphan blob reconciliation
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`

	// Telemetry (empty endpoint disables export)
	OtelEndpoint   string `env:"OTEL_ENDPOINT"`
	OtelAuthHeader string `env:"OTEL_AUTH_HEADER"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	TokenFile string `env:"TOKEN_FILE"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

// BlobMaxBytes: лимит размера одного blob в байтах.
func (c *Config) BlobMaxBytes() int64 {
	return int64(c.BlobMaxSizeMB) << 20
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// значения из env служат умолчаниями для флагов, флаг переопределяет env
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres:// или sqlite DSN)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "каталог для содержимого blob")
	flag.IntVar(&cfg.BlobMaxSizeMB, "blob-max-mb", cfg.BlobMaxSizeMB, "максимальный размер изображения, МБ")
	flag.IntVar(&cfg.UploadConcurrency, "upload-concurrency", cfg.UploadConcurrency, "число одновременных загрузок")
	flag.Float64Var(&cfg.LowStockThreshold, "low-stock-threshold", cfg.LowStockThreshold, "порог низкого остатка")
	flag.BoolVar(&cfg.RearmOnRestock, "rearm", cfg.RearmOnRestock, "снимать флаг уведомления при пополнении")
	flag.StringVar(&cfg.NotifyChannel, "notify", cfg.NotifyChannel, "канал уведомлений: log, kafka, redis")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the CocoStock server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "path to auth token file (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "file:cocostock.db?cache=shared"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.BlobDir == "" {
		cfg.BlobDir = filepath.Join(".", "data", "blobs")
	}
	if cfg.BlobMaxSizeMB <= 0 {
		cfg.BlobMaxSizeMB = 5
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 4
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 10
	}
	switch cfg.NotifyChannel {
	case NotifyLog, NotifyKafka, NotifyRedis:
	default:
		cfg.NotifyChannel = NotifyLog
	}
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = 256
	}
	if cfg.NotifyWorkers <= 0 {
		cfg.NotifyWorkers = 2
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "inventory.low-stock"
	}
	if cfg.RedisStream == "" {
		cfg.RedisStream = "inventory:low-stock"
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = time.Minute
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.TokenFile == "" {
		home, _ := os.UserHomeDir()
		cfg.TokenFile = filepath.Join(home, ".cs_token")
	}
}
