package main

import (
	"CocoStock/internal/asset"
	"CocoStock/internal/blobstore"
	"CocoStock/internal/config"
	"CocoStock/internal/handlers"
	"CocoStock/internal/middleware"
	"CocoStock/internal/monitor"
	"CocoStock/internal/notify"
	"CocoStock/internal/observability"
	"CocoStock/internal/repo"
	"CocoStock/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shutdownTimeout = 10 * time.Second
	reconcileBatch  = 100
)

func main() {
	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelSettings := observability.Settings{Endpoint: cfg.OtelEndpoint, AuthHeader: cfg.OtelAuthHeader}
	tp, otelShutdown, err := observability.Setup(ctx, otelSettings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry setup failed, continuing without export: %v\n", err)
		otelSettings = observability.Settings{}
		tp, otelShutdown, _ = observability.Setup(ctx, otelSettings)
	}

	logger := observability.NewLogger(otelSettings, zapcore.InfoLevel)
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	blobRepo := repo.NewBlobRepository(gormDB)
	store, err := blobstore.NewFSStore(cfg.BlobDir, cfg.BlobMaxBytes(), blobRepo)
	if err != nil {
		sugar.Fatalw("failed to initialize blob store", "dir", cfg.BlobDir, "error", err)
	}
	assets := asset.NewManager(store, blobRepo, repo.NewOrphanRepository(gormDB), cfg.UploadConcurrency, sugar)

	channel, closeChannel, err := newChannel(ctx, cfg, tp, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize notification channel", "channel", cfg.NotifyChannel, "error", err)
	}
	dispatcher := notify.NewDispatcher(channel, cfg.NotifyQueueSize, cfg.NotifyTimeout, sugar)
	dispatcher.Start(cfg.NotifyWorkers)

	userService := service.NewUserService(repo.NewUserRepository(gormDB))
	itemService := service.NewItemService(
		repo.NewItemRepository(gormDB),
		assets,
		dispatcher,
		monitor.New(cfg.LowStockThreshold, cfg.RearmOnRestock),
		sugar,
	)

	h := handlers.NewHandler(userService, itemService, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"BlobDir", cfg.BlobDir,
		"BlobMaxSizeMB", cfg.BlobMaxSizeMB,
		"LowStockThreshold", cfg.LowStockThreshold,
		"RearmOnRestock", cfg.RearmOnRestock,
		"NotifyChannel", channel.Name(),
		"Telemetry", otelSettings.Enabled(),
	)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		sugar.Infow("Starting server", "addr", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw("Server failed", "error", err)
			stop()
		}
	}()

	reconcileDone := make(chan struct{})
	go func() {
		defer close(reconcileDone)
		runReconciler(ctx, assets, cfg.ReconcileInterval, sugar)
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP server shutdown failed", "error", err)
	}
	<-reconcileDone

	// очередь уведомлений дочитывается воркерами до закрытия канала
	dispatcher.Close()
	st := dispatcher.Stats()
	sugar.Infow("notification dispatcher stopped", "delivered", st.Delivered, "failed", st.Failed, "dropped", st.Dropped)
	if err := closeChannel(); err != nil {
		sugar.Warnw("notification channel close failed", "error", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		sugar.Warnw("telemetry shutdown failed", "error", err)
	}
}

// newChannel выбирает канал доставки уведомлений по конфигурации.
func newChannel(ctx context.Context, cfg *config.Config, tp trace.TracerProvider, logger *zap.SugaredLogger) (notify.Channel, func() error, error) {
	switch cfg.NotifyChannel {
	case config.NotifyKafka:
		p, err := notify.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic, tp)
		if err != nil {
			return nil, nil, err
		}
		ch := notify.NewKafkaChannel(p)
		return ch, ch.Close, nil
	case config.NotifyRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		ch := notify.NewRedisChannel(client, cfg.RedisStream)
		return ch, ch.Close, nil
	default:
		return notify.NewLogChannel(logger), func() error { return nil }, nil
	}
}

// runReconciler периодически дочищает осиротевшие blob, пока ctx не отменён.
func runReconciler(ctx context.Context, assets *asset.Manager, interval time.Duration, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := assets.Reconcile(ctx, reconcileBatch)
			if err != nil {
				logger.Warnw("orphan reconciliation failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Infow("orphan blobs reconciled", "count", n)
			}
		}
	}
}
