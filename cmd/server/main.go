package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LoneMenace/cinesense/internal/artifact"
	"github.com/LoneMenace/cinesense/internal/config"
	"github.com/LoneMenace/cinesense/internal/handler"
	"github.com/LoneMenace/cinesense/internal/metrics"
	"github.com/LoneMenace/cinesense/internal/middleware"
	"github.com/LoneMenace/cinesense/internal/repository"
	"github.com/LoneMenace/cinesense/internal/service"
	"github.com/LoneMenace/cinesense/internal/session"
)

func main() {
	configPath := flag.String("config", envOr("CINESENSE_CONFIG", "configs/config.yml"), "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting CineSense...", zap.String("config", *configPath))

	// Load model artifacts
	model, err := artifact.LoadModel(cfg.Model.VectorizerPath, cfg.Model.ClassifierPath)
	if err != nil {
		logger.Fatal("Failed to load model", zap.Error(err))
	}
	logger.Info("Model loaded", zap.Int("vocabulary", len(model.Vocabulary())))

	// Initialize repository
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	repo, err := repository.NewReviewRepository(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Sessions
	secret := cfg.Session.Secret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			logger.Fatal("Failed to generate session secret", zap.Error(err))
		}
		logger.Warn("Session secret not configured, using a random one; sessions will not survive restarts")
	}
	tokens, err := session.NewTokens(secret, time.Duration(cfg.Session.TTLHours)*time.Hour)
	if err != nil {
		logger.Fatal("Failed to initialize sessions", zap.Error(err))
	}
	history := session.NewHistory(cfg.History.SessionMaxEntries, tokens.TTL())

	collector := metrics.NewCollector("cinesense")

	// Initialize service and handler
	analyzer := service.NewAnalyzer(model, repo, collector, cfg.Model.TopN, logger)
	apiHandler := handler.NewHandler(analyzer, history, cfg.History.Limit, logger)

	tmpl, err := handler.LoadTemplates()
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	// Setup Gin router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger, collector))
	router.Use(middleware.CORS())
	router.Use(middleware.Session(tokens, cfg.Session.CookieName, logger))
	router.SetHTMLTemplate(tmpl)

	apiHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("CineSense is running", zap.String("address", serverAddr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
