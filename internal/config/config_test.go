package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":3000" {
		t.Errorf("expected :3000, got %s", cfg.HTTPAddr)
	}
	if cfg.StaticDir != "dist" {
		t.Errorf("expected dist, got %s", cfg.StaticDir)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("expected 8h session ttl, got %s", cfg.SessionTTL)
	}
	if len(cfg.Staff) != 4 {
		t.Errorf("expected built-in staff roster, got %d entries", len(cfg.Staff))
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard cors default, got %v", cfg.CORSOrigins)
	}
	if cfg.InviteURL() != "https://discord.gg/tradeup" {
		t.Errorf("unexpected invite url %s", cfg.InviteURL())
	}
}

func TestLoad_BotToken(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name:     "primary name",
			env:      map[string]string{"DISCORD_BOT_TOKEN": "abc"},
			expected: "abc",
		},
		{
			name:     "fallback name",
			env:      map[string]string{"BOT_TOKEN": "xyz"},
			expected: "xyz",
		},
		{
			name:     "primary wins",
			env:      map[string]string{"DISCORD_BOT_TOKEN": "abc", "BOT_TOKEN": "xyz"},
			expected: "abc",
		},
		{
			name:     "bot prefix stripped",
			env:      map[string]string{"DISCORD_BOT_TOKEN": "Bot abc"},
			expected: "abc",
		},
		{
			name:     "case insensitive prefix",
			env:      map[string]string{"DISCORD_BOT_TOKEN": "bot abc"},
			expected: "abc",
		},
		{
			name:     "whitespace trimmed",
			env:      map[string]string{"DISCORD_BOT_TOKEN": "  abc  "},
			expected: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.BotToken != tt.expected {
				t.Errorf("expected token %q, got %q", tt.expected, cfg.BotToken)
			}
		})
	}
}

func TestLoad_StaffOverride(t *testing.T) {
	t.Setenv("STAFF_MEMBERS", `[{"id": "100000000000000001", "role": "Owner"}]`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Staff) != 1 || cfg.Staff[0].Role != "Owner" {
		t.Errorf("unexpected staff %v", cfg.Staff)
	}
}

func TestLoad_InvalidStaffRejected(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad json", `not-json`},
		{"bad snowflake", `[{"id": "not-a-snowflake", "role": "Owner"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STAFF_MEMBERS", tt.raw)
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_AllowList(t *testing.T) {
	t.Setenv("ALLOWED_USER_IDS", " 100000000000000001 ,200000000000000002,, ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedIDs) != 2 {
		t.Fatalf("expected 2 allowed ids, got %v", cfg.AllowedIDs)
	}
	if !cfg.IsAllowed("100000000000000001") {
		t.Error("expected first id to be allowed")
	}
	if cfg.IsAllowed("300000000000000003") {
		t.Error("expected unknown id to be denied")
	}
}

func TestLoad_InvalidAllowListRejected(t *testing.T) {
	t.Setenv("ALLOWED_USER_IDS", "not-a-snowflake")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid allow-list id")
	}
}

func TestLoad_SessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %s", cfg.SessionTTL)
	}

	t.Setenv("SESSION_TTL_HOURS", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid ttl")
	}
}

func TestLoad_PermanentInviteWins(t *testing.T) {
	t.Setenv("PERMANENT_INVITE", "https://discord.gg/permanent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InviteURL() != "https://discord.gg/permanent" {
		t.Errorf("unexpected invite url %s", cfg.InviteURL())
	}
}

func TestLoad_PublicBaseURLTrimmed(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://tradeup.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PublicBaseURL != "https://tradeup.example" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
}
