package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/aspect-export/internal/config"
	"github.com/ignite/aspect-export/internal/encoder"
	"github.com/ignite/aspect-export/internal/pkg/distlock"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/repository/postgres"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/uploader"
)

// retentionInterval is how often the dispatch log cleanup runs.
const retentionInterval = 24 * time.Hour

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("worker: load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	if cfg.Database.URL == "" {
		log.Error("worker: DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error("worker: open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("worker: ping database", "error", err.Error())
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var objectStore uploader.Backend
	s3Backend, err := uploader.NewS3Backend(context.Background(), uploader.S3Options{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		Region:    cfg.ObjectStore.Region,
	}, log)
	if err != nil {
		log.Warn("worker: object store backend unavailable", "error", err.Error())
	} else {
		objectStore = s3Backend
	}
	selector := uploader.NewSelector(objectStore, uploader.NewNetworkBackend(log))

	enc := encoder.New(log)
	mapper := encoder.NewMapper()
	contacts := postgres.NewContactRepo(db)
	schemaRepo := postgres.NewSchemaRepo(db)

	lock := distlock.New(redisClient, db, "aspect-export:batch-processor", 10*time.Minute)
	batches := batch.NewService(postgres.NewBatchRepo(db), schemaRepo, contacts,
		enc, mapper, selector, lock, log, batch.Config{ChunkSize: cfg.Processor.ChunkSize})

	logRepo := postgres.NewDispatchLogRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker: started",
		"interval", cfg.Processor.Interval().String(),
		"batch_limit", cfg.Processor.BatchLimit,
		"chunk_size", cfg.Processor.ChunkSize,
	)

	ticker := time.NewTicker(cfg.Processor.Interval())
	defer ticker.Stop()
	retention := time.NewTicker(retentionInterval)
	defer retention.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: shutting down")
			return
		case <-ticker.C:
			res, err := batches.ProcessPending(ctx, cfg.Processor.BatchLimit)
			if err != nil {
				log.Error("worker: processing tick failed", "error", err.Error())
				continue
			}
			if res.Processed > 0 {
				log.Info("worker: tick complete",
					"processed", res.Processed,
					"succeeded", res.Succeeded,
					"failed", res.Failed,
				)
			}
		case <-retention.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.Retention.DispatchLogDays)
			removed, err := logRepo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				log.Error("worker: retention cleanup failed", "error", err.Error())
				continue
			}
			if removed > 0 {
				log.Info("worker: dispatch logs cleared",
					"removed", removed,
					"older_than_days", cfg.Retention.DispatchLogDays,
				)
			}
		}
	}
}
