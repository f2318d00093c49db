package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/crm-pipeline-api/internal/config"
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"github.com/yukikurage/crm-pipeline-api/internal/router"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetGlobal(zapLogger)
	defer logger.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		logger.L().Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.L().Fatal("failed to run migrations", zap.Error(err))
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		logger.L().Fatal("failed to create session store", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	} else {
		logger.L().Warn("OPENAI_API_KEY not set; task generation is disabled")
	}

	r := router.Setup(database.GetDB(), router.Options{
		SessionStore: store,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		Metrics:      m,
		AIService:    aiService,
		StaleDays:    cfg.StaleDealDays,
	})

	// Start server
	addr := ":" + cfg.ServerPort
	logger.L().Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.L().Fatal("failed to start server", zap.Error(err))
	}
}

// newSessionStore returns a Redis-backed store, or a signed cookie store when
// SESSION_STORE=cookie.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.SessionStore == "cookie" {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, err
	}
	store.Options(options)
	return store, nil
}
