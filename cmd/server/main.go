package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"bankpilot.app/concierge/common/id"
	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/common/logger"
	"bankpilot.app/concierge/common/otel"
	"bankpilot.app/concierge/core/config"
	"bankpilot.app/concierge/core/db"
	"bankpilot.app/concierge/internal/answer"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/faq"
	"bankpilot.app/concierge/internal/http/middleware"
	httprouter "bankpilot.app/concierge/internal/http/router"
	"bankpilot.app/concierge/internal/queue"
	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/routing"
	"bankpilot.app/concierge/internal/session"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "concierge starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)

	if !cfg.LLM.Enabled() {
		slog.ErrorContext(ctx, "LLM_API_KEY is required")
		os.Exit(1)
	}
	if !cfg.Embedding.Enabled() {
		slog.ErrorContext(ctx, "EMBEDDING_API_KEY is required for FAQ lookup")
		os.Exit(1)
	}

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Ingestion.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Ingestion.RedisStream)

	embedder, err := llm.NewEmbedder(llm.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create embedder", "error", err)
		os.Exit(1)
	}

	faqIndex, err := faq.NewChromemIndex(faq.Config{
		PersistPath: cfg.FAQ.PersistPath,
		Collection:  cfg.FAQ.Collection,
	}, embedder)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open faq index", "error", err)
		os.Exit(1)
	}

	llmCfg := llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	}
	textClient, err := llm.NewTextClient(llmCfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm text client", "error", err)
		os.Exit(1)
	}
	chatClient, err := llm.New(llmCfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm chat client", "error", err)
		os.Exit(1)
	}

	store := catalog.NewProductStore(database.Pool())
	reg := registry.New(store, cfg.Routing.RegistryTTL)
	sessions := session.NewManager(cfg.Session.TTL)
	retriever := routing.NewRetriever(store, faqIndex, cfg.Routing.EvidenceTimeout, cfg.Routing.EvidenceBackoff)
	rt := routing.NewRouter(reg, sessions, retriever, cfg.Routing)
	svc := answer.NewService(rt, store, textClient, chatClient, cfg.LLM.MaxTokens)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Ingestion.RedisStream,
		Group:     cfg.Ingestion.RedisGroup,
		Consumer:  cfg.Ingestion.RedisConsumer,
		BatchSize: 16,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create queue consumer", "error", err)
		os.Exit(1)
	}
	invalidator := queue.NewInvalidator(consumer, reg)
	go invalidator.Run(ctx)
	go sessions.Run(cfg.Session.SweepInterval)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := setupRouter(cfg, svc, reg)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	invalidator.Stop()
	sessions.Stop()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, svc *answer.Service, reg *registry.Registry) *gin.Engine {
	engine := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		engine.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	httprouter.SetupRoutes(engine, svc, reg, httprouter.RouterConfig{
		RequestTimeout: cfg.Routing.RequestTimeout,
		AdminAPIKey:    cfg.AdminAPIKey,
	})

	return engine
}

const banner = `
 ██████╗ ██████╗ ███╗   ██╗ ██████╗██╗███████╗██████╗  ██████╗ ███████╗
██╔════╝██╔═══██╗████╗  ██║██╔════╝██║██╔════╝██╔══██╗██╔════╝ ██╔════╝
██║     ██║   ██║██╔██╗ ██║██║     ██║█████╗  ██████╔╝██║  ███╗█████╗
██║     ██║   ██║██║╚██╗██║██║     ██║██╔══╝  ██╔══██╗██║   ██║██╔══╝
╚██████╗╚██████╔╝██║ ╚████║╚██████╗██║███████╗██║  ██║╚██████╔╝███████╗
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝ ╚═════╝╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝`
