package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NexusDevelopments/tradeupsite/internal/config"
	"github.com/NexusDevelopments/tradeupsite/internal/discord"
	"github.com/NexusDevelopments/tradeupsite/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPAddr:   ":0",
		StaticDir:  t.TempDir(),
		GuildID:    "111111111111111111",
		InviteCode: "tradeup",
		SessionTTL: 8 * time.Hour,
		Staff: []config.StaffEntry{
			{ID: "100000000000000001", Role: "Owner"},
		},
		CORSOrigins: []string{"*"},
	}
}

// newTestServer wires a full server against a stub Discord REST API.
// mutate may adjust the config before wiring; pass nil for defaults.
func newTestServer(t *testing.T, discordAPI http.Handler, mutate func(*config.Config)) (*Server, *session.MemoryStore) {
	t.Helper()

	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	client := discord.NewClient(testLogger(), cfg.BotToken)
	if discordAPI != nil {
		stub := httptest.NewServer(discordAPI)
		t.Cleanup(stub.Close)
		client.BaseURL = stub.URL
	} else {
		// no stub: point at a closed listener so every fetch degrades
		stub := httptest.NewServer(http.NotFoundHandler())
		stub.Close()
		client.BaseURL = stub.URL
	}

	gateway := discord.NewGateway(cfg.BotToken, cfg.GuildID, testLogger())
	sessions := session.NewMemoryStore(cfg.SessionTTL)
	t.Cleanup(func() { sessions.Close() })

	return NewServer(testLogger(), cfg, client, gateway, sessions), sessions
}

func get(srv *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}
