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

	"github.com/ignite/aspect-export/internal/api"
	"github.com/ignite/aspect-export/internal/config"
	"github.com/ignite/aspect-export/internal/encoder"
	"github.com/ignite/aspect-export/internal/fastpath"
	"github.com/ignite/aspect-export/internal/pkg/distlock"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/repository/postgres"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/service/dispatch"
	"github.com/ignite/aspect-export/internal/service/schema"
	"github.com/ignite/aspect-export/internal/uploader"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("server: load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	if cfg.Database.URL == "" {
		log.Error("server: DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error("server: open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("server: ping database", "error", err.Error())
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
		log.Warn("server: object store backend unavailable", "error", err.Error())
	} else {
		objectStore = s3Backend
	}
	selector := uploader.NewSelector(objectStore, uploader.NewNetworkBackend(log))

	enc := encoder.New(log)
	mapper := encoder.NewMapper()
	contacts := postgres.NewContactRepo(db)
	schemaRepo := postgres.NewSchemaRepo(db)
	schemas := schema.NewService(schemaRepo, log)

	lock := distlock.New(redisClient, db, "aspect-export:batch-processor", 10*time.Minute)
	batches := batch.NewService(postgres.NewBatchRepo(db), schemaRepo, contacts,
		enc, mapper, selector, lock, log, batch.Config{ChunkSize: cfg.Processor.ChunkSize})

	logs := dispatch.NewService(postgres.NewDispatchLogRepo(db), schemaRepo, contacts,
		enc, mapper, fastpath.NewClient(log), log)

	server := api.NewServer(cfg.Server, schemas, batches, logs, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server: stopped", "error", err.Error())
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("server: shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server: shutdown", "error", err.Error())
		}
	}
}
