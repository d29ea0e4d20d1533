package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NexusDevelopments/tradeupsite/internal/security"
)

// StaffEntry is one configured staff identity. The set is fixed at startup
// and never mutated afterwards.
type StaffEntry struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// defaultStaff is the built-in staff roster; STAFF_MEMBERS overrides it.
var defaultStaff = []StaffEntry{
	{ID: "1148173313776680960", Role: "Owner"},
	{ID: "1099451145393884242", Role: "Co-Owner"},
	{ID: "920147545547227186", Role: "Developer"},
	{ID: "1042851103135899688", Role: "Moderator"},
}

type Config struct {
	HTTPAddr  string
	LogLevel  string
	StaticDir string

	GuildID         string
	InviteCode      string
	PermanentInvite string

	// raw secrets kept in-memory only; never log these
	BotToken     string
	ClientID     string
	ClientSecret string

	RedirectURI   string
	PublicBaseURL string

	Staff       []StaffEntry
	AllowedIDs  []string
	CORSOrigins []string

	RedisDSN   string // optional external session store
	SessionTTL time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        ":" + getenvDefault("PORT", "3000"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		StaticDir:       getenvDefault("STATIC_DIR", "dist"),
		GuildID:         os.Getenv("GUILD_ID"),
		InviteCode:      getenvDefault("INVITE_CODE", "tradeup"),
		PermanentInvite: os.Getenv("PERMANENT_INVITE"),
		ClientID:        os.Getenv("DISCORD_CLIENT_ID"),
		ClientSecret:    os.Getenv("DISCORD_CLIENT_SECRET"),
		RedirectURI:     os.Getenv("DISCORD_REDIRECT_URI"),
		PublicBaseURL:   strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RedisDSN:        os.Getenv("REDIS_DSN"),
	}

	// the bot token is accepted under either name; the REST client adds the
	// "Bot " prefix itself, so strip it if present
	tok := os.Getenv("DISCORD_BOT_TOKEN")
	if tok == "" {
		tok = os.Getenv("BOT_TOKEN")
	}
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(strings.ToLower(tok), "bot ") {
		tok = strings.TrimSpace(tok[4:])
	}
	cfg.BotToken = tok

	ttlHours := getenvDefault("SESSION_TTL_HOURS", "8")
	hours, err := strconv.Atoi(ttlHours)
	if err != nil || hours <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_HOURS must be a positive integer, got %q", ttlHours)
	}
	cfg.SessionTTL = time.Duration(hours) * time.Hour

	cfg.Staff = defaultStaff
	if raw := os.Getenv("STAFF_MEMBERS"); raw != "" {
		var staff []StaffEntry
		if err := json.Unmarshal([]byte(raw), &staff); err != nil {
			return Config{}, fmt.Errorf("STAFF_MEMBERS must be valid json: %w", err)
		}
		cfg.Staff = staff
	}
	for _, s := range cfg.Staff {
		if _, err := security.ParseSnowflake(s.ID); err != nil {
			return Config{}, fmt.Errorf("invalid staff id %q: %w", s.ID, err)
		}
	}

	if raw := os.Getenv("ALLOWED_USER_IDS"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, err := security.ParseSnowflake(id); err != nil {
				return Config{}, fmt.Errorf("invalid allow-list id %q: %w", id, err)
			}
			cfg.AllowedIDs = append(cfg.AllowedIDs, id)
		}
	}

	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

// InviteURL returns the public invite link, preferring the permanent override.
func (c Config) InviteURL() string {
	if c.PermanentInvite != "" {
		return c.PermanentInvite
	}
	return "https://discord.gg/" + c.InviteCode
}

// IsAllowed reports whether the given user id is on the authorization
// allow-list.
func (c Config) IsAllowed(userID string) bool {
	for _, id := range c.AllowedIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
