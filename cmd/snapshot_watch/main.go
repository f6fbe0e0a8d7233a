package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/marketsnap/internal/config"
	"github.com/hetulpatel/marketsnap/internal/kafka"
	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/workers"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[snapshot-watch] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers := kafka.Brokers(cfg.Kafka.Brokers)
	topic := kafka.Topic(cfg.Kafka.Topic)
	group := envString("SNAPSHOT_WATCH_GROUP", kafka.DefaultWatchGroup)
	workerCount := envInt("SNAPSHOT_WATCH_CONCURRENCY", 1)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[snapshot-watch] wait for broker: %v", err)
	}
	cancel()

	watcher := workers.NewWatcher(cfg.Present.OverroundThreshold)
	logging.Infof("[snapshot-watch] consuming %s with group %s (%d workers, threshold=%.2f%%)",
		topic, group, workerCount, cfg.Present.OverroundThreshold)
	workers.Run(ctx, brokers, topic, group, workerCount, watcher.Handle)

	seen, alerts := watcher.Stats()
	logging.Infof("[snapshot-watch] stopped after %d snapshots, %d alerts", seen, alerts)
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
