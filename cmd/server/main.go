package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NexusDevelopments/tradeupsite/internal/api"
	"github.com/NexusDevelopments/tradeupsite/internal/config"
	"github.com/NexusDevelopments/tradeupsite/internal/discord"
	"github.com/NexusDevelopments/tradeupsite/internal/logging"
	"github.com/NexusDevelopments/tradeupsite/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_server",
		"service", "tradeupsite",
		"http_addr", cfg.HTTPAddr,
		"static_dir", cfg.StaticDir,
		"bot_token_configured", cfg.BotToken != "",
		"oauth_configured", cfg.ClientID != "" && cfg.ClientSecret != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sessions live in memory unless an external cache is configured
	var sessions session.Store
	if cfg.RedisDSN != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisDSN)
		if err != nil {
			logger.Error("redis_connect_failed", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("session_store_ready", "backend", "redis")
	} else {
		memStore := session.NewMemoryStore(cfg.SessionTTL)
		defer memStore.Close()
		sessions = memStore
		logger.Info("session_store_ready", "backend", "memory")
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessions.SweepExpired(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	gin.SetMode(gin.ReleaseMode)

	client := discord.NewClient(logger, cfg.BotToken)

	gateway := discord.NewGateway(cfg.BotToken, cfg.GuildID, logger)
	gateway.Start(ctx)
	defer gateway.Close()

	srv := api.NewServer(logger, cfg, client, gateway, sessions)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server_started", "addr", cfg.HTTPAddr)

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	gateway.Close()
	logger.Info("server_stopped")
}
