package config

import (
	"flag"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"DATABASE_URI", "AUTH_SECRET", "BLOB_DIR", "BLOB_MAX_MB", "UPLOAD_CONCURRENCY",
	"LOW_STOCK_THRESHOLD", "REARM_ON_RESTOCK", "NOTIFY_CHANNEL", "NOTIFY_QUEUE_SIZE",
	"NOTIFY_WORKERS", "NOTIFY_TIMEOUT", "KAFKA_TOPIC", "REDIS_STREAM", "RECONCILE_INTERVAL",
	"BASE_URL", "ENABLE_HTTPS", "TOKEN_FILE",
}

// loadConfig вызывает NewConfig с чистым окружением, заданными env и аргументами командной строки.
func loadConfig(t *testing.T, envs map[string]string, args ...string) *Config {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}

	oldArgs, oldFlags := os.Args, flag.CommandLine
	t.Cleanup(func() { os.Args, flag.CommandLine = oldArgs, oldFlags })
	os.Args = append([]string{"cocostock"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)

	return NewConfig()
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := loadConfig(t, nil)

	assert.Equal(t, "dev-secret-key", cfg.AuthSecret)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.NotEmpty(t, cfg.BlobDir)
	assert.NotEmpty(t, cfg.TokenFile)

	assert.Equal(t, 5, cfg.BlobMaxSizeMB)
	assert.Equal(t, int64(5<<20), cfg.BlobMaxBytes())
	assert.Equal(t, 4, cfg.UploadConcurrency)

	assert.Equal(t, 10.0, cfg.LowStockThreshold)
	assert.False(t, cfg.RearmOnRestock)

	assert.Equal(t, NotifyLog, cfg.NotifyChannel)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, "inventory.low-stock", cfg.KafkaTopic)
	assert.Equal(t, "inventory:low-stock", cfg.RedisStream)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)

	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8081", cfg.ServerURL)
}

func TestNewConfig_FromEnv(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"AUTH_SECRET":         "top",
		"BLOB_MAX_MB":         "10",
		"LOW_STOCK_THRESHOLD": "2.5",
		"REARM_ON_RESTOCK":    "true",
		"NOTIFY_CHANNEL":      "redis",
		"NOTIFY_WORKERS":      "6",
		"NOTIFY_TIMEOUT":      "750ms",
		"RECONCILE_INTERVAL":  "30s",
	})

	assert.Equal(t, "top", cfg.AuthSecret)
	assert.Equal(t, int64(10<<20), cfg.BlobMaxBytes())
	assert.Equal(t, 2.5, cfg.LowStockThreshold)
	assert.True(t, cfg.RearmOnRestock)
	assert.Equal(t, NotifyRedis, cfg.NotifyChannel)
	assert.Equal(t, 6, cfg.NotifyWorkers)
	assert.Equal(t, 750*time.Millisecond, cfg.NotifyTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
}

func TestNewConfig_FlagOverridesEnv(t *testing.T) {
	cfg := loadConfig(t,
		map[string]string{"BLOB_MAX_MB": "10", "NOTIFY_CHANNEL": "redis"},
		"-blob-max-mb", "3", "-notify", "kafka", "-rearm", "items", "extra",
	)

	assert.Equal(t, 3, cfg.BlobMaxSizeMB)
	assert.Equal(t, NotifyKafka, cfg.NotifyChannel)
	assert.True(t, cfg.RearmOnRestock)
	assert.Equal(t, []string{"items", "extra"}, flag.Args())
}

func TestNewConfig_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "https base url",
			env:  map[string]string{"BASE_URL": "stock.example.com:443", "ENABLE_HTTPS": "true"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://stock.example.com:443", cfg.ServerURL)
			},
		},
		{
			name: "base url with scheme falls back",
			env:  map[string]string{"BASE_URL": "http://bad:8080"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost:8081", cfg.BaseURL)
				assert.Equal(t, "http://localhost:8081", cfg.ServerURL)
			},
		},
		{
			name: "unknown notify channel falls back to log",
			env:  map[string]string{"NOTIFY_CHANNEL": "carrier-pigeon"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, NotifyLog, cfg.NotifyChannel)
			},
		},
		{
			name: "non-positive limits replaced",
			env:  map[string]string{"BLOB_MAX_MB": "-1", "UPLOAD_CONCURRENCY": "0", "LOW_STOCK_THRESHOLD": "-3"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5, cfg.BlobMaxSizeMB)
				assert.Equal(t, 4, cfg.UploadConcurrency)
				assert.Equal(t, 10.0, cfg.LowStockThreshold)
			},
		},
		{
			name: "explicit token file kept",
			env:  map[string]string{"TOKEN_FILE": "/tmp/cs/token"},
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, "/tmp/cs/token", cfg.TokenFile)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, loadConfig(t, tt.env))
		})
	}
}
