package main

import (
	"context"
	"log"
	"os"
	"time"

	"lawdesk/internal/analyze"
	"lawdesk/internal/api"
	"lawdesk/internal/auth"
	"lawdesk/internal/config"
	"lawdesk/internal/extract"
	"lawdesk/internal/followup"
	"lawdesk/internal/redis"
	"lawdesk/internal/service/account"
	"lawdesk/internal/service/casefile"
	"lawdesk/internal/storage"
	"lawdesk/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("LAWDESK_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	dbType := os.Getenv("LAWDESK_DB")
	if dbType == "" {
		dbType = cfg.BasicConfig.Database
	}
	logger.Info("opening database", zap.String("driver", dbType))
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	// Create necessary tables: users, user_tokens, documents
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	var rdb *redis.Client
	followupStore := followup.Store(followup.NewMemoryStore())
	if cfg.Redis.Enabled {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("create redis client", zap.Error(err))
		}
		defer rdb.Close()
		followupStore = followup.NewRedisStore(rdb)
	}

	extractor := extract.New(logger)
	analyzer := analyze.NewClient(cfg, logger)
	followups := followup.NewManager(followupStore, analyzer, logger)
	documents := casefile.NewService(db, extractor, analyzer, followups, cfg.Retention, logger)
	accounts := account.NewService(db)
	authService := auth.NewService(db, rdb, 24*time.Hour)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	documents.StartRetentionSweeper(sweepCtx)

	minWorkers := cfg.BasicConfig.MinWorkers
	if minWorkers <= 0 {
		minWorkers = 2
	}
	maxWorkers := cfg.BasicConfig.MaxWorkers
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers * 4
	}
	queueSize := cfg.BasicConfig.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	idleTimeout := time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	manager := worker.NewManager(documents, followups, logger)
	worker.NewDispatcher(minWorkers, maxWorkers, queueSize, manager, idleTimeout)

	handlers := api.NewHandler(accounts, authService, manager, documents, followups, cfg.BasicConfig.UploadDir)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	logger.Info("server listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
