package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bookshelf/internal/api"
	"bookshelf/internal/api/middleware"
	"bookshelf/internal/app/service"
	"bookshelf/internal/common/security"
	"bookshelf/internal/domain/repository"
	"bookshelf/internal/platform/cache"
	"bookshelf/internal/platform/config"
	"bookshelf/internal/platform/database"
	"bookshelf/internal/platform/openlibrary"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Logger
	logger := newLogger(cfg)
	logger.Info("Configuration loaded")

	// 3. Token manager
	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)

	// 4. Database
	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		logger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connected")

	// 5. Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("Could not connect to Redis: %v", err)
	}
	defer rdb.Close()
	logger.Info("Redis connected")

	// 6. Repositories
	userRepo := repository.NewPgUserRepository(db)
	bookRepo := repository.NewPgBookRepository(db)
	shelfRepo := repository.NewPgShelfRepository(db)

	// 7. Platform clients
	library := openlibrary.NewClient(cfg.OpenLibraryBaseURL, cfg.CoversBaseURL, logger)
	metaCache := cache.NewBookMetaCache(rdb, cfg.BookMetaCacheTTL, logger)

	// 8. Services
	authService := service.NewAuthService(userRepo, tokens, logger)
	bookService := service.NewBookService(bookRepo, shelfRepo, library, metaCache, db, logger)
	shelfService := service.NewShelfService(shelfRepo, bookRepo, logger)
	userService := service.NewUserService(userRepo, shelfRepo, db, logger)

	// 9. Router & HTTP Server
	var authRateLimit func(next http.Handler) http.Handler
	if cfg.AuthRateLimit != "" {
		authRateLimit, err = middleware.NewRateLimiter(rdb, cfg.AuthRateLimit)
		if err != nil {
			logger.Fatalf("Could not build auth rate limiter: %v", err)
		}
	}

	router := api.NewRouter(cfg, logger, tokens, authService, bookService, shelfService, userService, authRateLimit)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server shutdown failed: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
