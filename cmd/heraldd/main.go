// Command heraldd runs the herald API as a standalone Forge service backed
// by the in-memory store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"
	"github.com/xraph/forge"

	"github.com/xraph/herald"
	redisbus "github.com/xraph/herald/bus/redis"
	heraldext "github.com/xraph/herald/extension"
	"github.com/xraph/herald/metrics"
	"github.com/xraph/herald/store/memory"
)

type config struct {
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr  string `envconfig:"METRICS_ADDR" default:":9090"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"herald:events"`
	NodeID       string `envconfig:"NODE_ID"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envconfig.Process("heraldd", &cfg); err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	engineCfg, err := herald.LoadConfig("herald")
	if err != nil {
		slog.Default().Error("load engine config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	collector := metrics.New("herald")

	opts := []heraldext.ExtOption{
		heraldext.WithStore(memory.New()),
		heraldext.WithLogger(logger),
		heraldext.WithMetrics(collector),
		heraldext.WithEngineOptions(herald.WithConfig(engineCfg)),
	}

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		busOpts := []redisbus.Option{redisbus.WithChannel(cfg.RedisChannel), redisbus.WithLogger(logger)}
		if cfg.NodeID != "" {
			busOpts = append(busOpts, redisbus.WithNodeID(cfg.NodeID))
		}
		opts = append(opts, heraldext.WithBus(redisbus.New(client, busOpts...)))
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           collector.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()

	ext := heraldext.New(opts...)
	app := forge.New(
		forge.WithExtensions(ext),
	)
	if err := app.Start(ctx); err != nil {
		logger.Error("start app", slog.Any("error", err))
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Closes the bus subscription and the engine's cache janitors.
	if err := ext.Stop(shutdownCtx); err != nil {
		logger.Warn("herald stop", slog.Any("error", err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", slog.Any("error", err))
	}
}

func newLogger(cfg config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
