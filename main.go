package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yashrajoria/webook/cache"
	"github.com/yashrajoria/webook/common/logger"
	"github.com/yashrajoria/webook/controllers"
	"github.com/yashrajoria/webook/database"
	"github.com/yashrajoria/webook/models"
	awspkg "github.com/yashrajoria/webook/pkg/aws"
	"github.com/yashrajoria/webook/repository"
	"github.com/yashrajoria/webook/routes"
	"github.com/yashrajoria/webook/services"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development").Fatal("Config load failed", zap.Error(err))
	}

	log := logger.Initialize(cfg.Env)
	defer log.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	var available atomic.Bool
	db, err := database.Open(cfg.DB, log, &models.Book{}, &models.User{}, &models.CartItem{})
	if err != nil {
		log.Error("Database unavailable, API routes will answer 503", zap.Error(err))
	} else {
		available.Store(true)
	}

	// --- Catalog cache (optional) ---
	var catalogCache *cache.CatalogCache
	if cfg.RedisURL != "" {
		catalogCache, err = cache.Connect(context.Background(), cfg.RedisURL, cfg.CacheTTL, log)
		if err != nil {
			log.Warn("Redis cache disabled", zap.Error(err))
		}
	}

	// --- Events (optional) ---
	var events *awspkg.EventPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Warn("AWS config load failed, events disabled", zap.Error(err))
		} else {
			snsClient := awspkg.NewSNSClient(awsCfg, awspkg.EndpointOverride())
			events = awspkg.NewEventPublisher(snsClient, cfg.SNSTopicARN, log)
		}
	}

	// --- Dependency injection ---
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	bookRepo := repository.NewGormBookRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	cartRepo := repository.NewGormCartRepository(db)

	ctrl := routes.Controllers{
		Books: controllers.NewBookController(services.NewBookService(bookRepo, catalogCache, events, log)),
		Users: controllers.NewUserController(services.NewUserService(userRepo, events, log)),
		Auth:  controllers.NewAuthController(services.NewAuthService(userRepo, tokens, cfg.AdminEmail, events, log)),
		Cart:  controllers.NewCartController(services.NewCartService(cartRepo, events, log)),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := routes.NewRouter(log, ctrl, routes.Options{
		Tokens:             tokens,
		RequireAdmin:       cfg.RequireAdmin,
		Users:              userRepo,
		Available:          available.Load,
		HealthCheck:        healthCheck(db),
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Registry:           registry,
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("WeBook API started", zap.String("port", cfg.Port), zap.String("db_driver", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := catalogCache.Close(); err != nil {
		log.Error("Redis close error", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}
	log.Info("WeBook API stopped gracefully")
}

func healthCheck(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}
