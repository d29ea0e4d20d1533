package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/NexusDevelopments/tradeupsite/internal/config"
	"github.com/NexusDevelopments/tradeupsite/internal/discord"
	"github.com/NexusDevelopments/tradeupsite/internal/security"
	"github.com/NexusDevelopments/tradeupsite/internal/session"
	"github.com/NexusDevelopments/tradeupsite/internal/staff"
)

type Server struct {
	log      *slog.Logger
	cfg      config.Config
	router   *gin.Engine
	client   *discord.Client
	gateway  *discord.Gateway
	resolver *staff.Resolver
	sessions session.Store
	states   *session.StateStore
	limiter  *security.LimiterStore

	// oauthClient performs the code-for-token exchange
	oauthClient *http.Client
}

func NewServer(log *slog.Logger, cfg config.Config, client *discord.Client, gateway *discord.Gateway, sessions session.Store) *Server {
	s := &Server{
		log:         log,
		cfg:         cfg,
		router:      gin.New(),
		client:      client,
		gateway:     gateway,
		resolver:    staff.NewResolver(client, gateway, cfg.GuildID, cfg.Staff, log),
		sessions:    sessions,
		states:      session.NewStateStore(),
		limiter:     security.NewLimiterStore(rate.Limit(1), 60, 10*time.Minute),
		oauthClient: discord.NewHTTPClient(),
	}

	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	// auth routes take priority over the API and static routes
	r.GET("/auth/discord", s.authLogin)
	r.GET("/auth/discord/callback", s.authCallback)
	r.GET("/auth/logout", s.authLogout)

	api := r.Group("/api")
	{
		api.GET("/discord-server", s.discordServer)
		api.GET("/bot-health", s.botHealth)
		api.GET("/auth/me", s.authMe)
		api.GET("/oauth-debug", s.oauthDebug)
	}

	// everything else is a static asset or the SPA fallback
	r.NoRoute(s.serveStatic)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
