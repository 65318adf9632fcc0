package main

import (
	"context"
	"log"
	"os"
	"time"

	"pdfqa/internal/api"
	"pdfqa/internal/auth"
	"pdfqa/internal/config"
	"pdfqa/internal/provider"
	"pdfqa/internal/redis"
	"pdfqa/internal/service/qa"
	"pdfqa/internal/storage"
	"pdfqa/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; the credential may come from the real environment.
	_ = godotenv.Load()

	cfgPath := os.Getenv("PDFQA_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("PDFQA_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	cache, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	qaService := qa.NewService(db)
	providerClient := provider.NewClient(cfg.Provider)
	cacheTTL := time.Duration(cfg.BasicConfig.AnswerCacheMinutes) * time.Minute
	workers := worker.NewManager(qaService, providerClient, cache, cacheTTL)

	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	cleanInterval := time.Duration(cfg.BasicConfig.CleanIntervalMinutes) * time.Minute
	sessionTTL := time.Duration(cfg.BasicConfig.SessionTTLMinutes) * time.Minute
	qaService.StartSessionCleaner(cleanCtx, cleanInterval, sessionTTL, workers.Purge)

	authService := auth.NewService(db, sessionTTL)
	maxUpload := cfg.BasicConfig.MaxUploadMB << 20
	handlers := api.NewHandler(qaService, authService, workers, maxUpload)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
