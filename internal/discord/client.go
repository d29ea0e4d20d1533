package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	userAgent      = "DiscordBot (https://github.com/NexusDevelopments/tradeupsite, 1.0)"
)

// Client issues best-effort calls against the Discord REST API. Every fetch
// degrades to nil/empty on failure; the aggregation handlers treat missing
// data as "unknown", never as fatal.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	botToken   string
	breaker    *CircuitBreaker

	// BaseURL is overridable for tests.
	BaseURL string
}

func NewClient(logger *slog.Logger, botToken string) *Client {
	return &Client{
		httpClient: NewHTTPClient(),
		logger:     logger,
		botToken:   botToken,
		BaseURL:    defaultBaseURL,
		breaker:    NewCircuitBreaker(),
	}
}

// TokenConfigured reports whether authenticated calls are possible.
func (c *Client) TokenConfigured() bool {
	return c.botToken != ""
}

// FetchInvite resolves an invite code to its public guild metadata.
// Returns nil on any upstream or transport failure.
func (c *Client) FetchInvite(ctx context.Context, code string) *InviteInfo {
	var invite InviteInfo
	url := fmt.Sprintf("%s/invites/%s?with_counts=true", c.BaseURL, code)
	if !c.getJSON(ctx, url, "", &invite) {
		return nil
	}
	return &invite
}

// FetchWidget fetches the unauthenticated widget member list for a guild.
// Returns an empty slice on any failure, including the widget being disabled.
func (c *Client) FetchWidget(ctx context.Context, guildID string) []WidgetMember {
	if guildID == "" {
		return nil
	}
	var widget struct {
		Members []WidgetMember `json:"members"`
	}
	url := fmt.Sprintf("%s/guilds/%s/widget.json", c.BaseURL, guildID)
	if !c.getJSON(ctx, url, "", &widget) {
		return nil
	}
	return widget.Members
}

// FetchUser looks up a user via the bot-authenticated endpoint. Returns nil
// without touching the network when no bot token is configured.
func (c *Client) FetchUser(ctx context.Context, userID string) *User {
	if c.botToken == "" {
		return nil
	}
	var user User
	url := fmt.Sprintf("%s/users/%s", c.BaseURL, userID)
	if !c.getJSON(ctx, url, "Bot "+c.botToken, &user) {
		return nil
	}
	return &user
}

// FetchGuildMember looks up a guild member via the bot-authenticated
// endpoint. Returns nil when no token is configured or on any failure.
func (c *Client) FetchGuildMember(ctx context.Context, guildID, userID string) *Member {
	if c.botToken == "" || guildID == "" {
		return nil
	}
	var member Member
	url := fmt.Sprintf("%s/guilds/%s/members/%s", c.BaseURL, guildID, userID)
	if !c.getJSON(ctx, url, "Bot "+c.botToken, &member) {
		return nil
	}
	return &member
}

// FetchSelf fetches the identity of an OAuth access token holder. Unlike the
// best-effort fetches this returns an error: the OAuth callback must
// distinguish an exchange failure from a degraded lookup.
func (c *Client) FetchSelf(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("identity_request_failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity_fetch_failed: status=%d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("identity_decode_failed: %w", err)
	}
	return &user, nil
}

// getJSON performs a GET behind the circuit breaker and decodes the body
// into out. Reports false on any failure.
func (c *Client) getJSON(ctx context.Context, url, authorization string, out any) bool {
	if !c.breaker.Allow() {
		c.logger.Debug("discord_call_short_circuited", "url", url, "breaker", c.breaker.StateString())
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("discord_request_failed", "url", url, "error", err)
		c.breaker.RecordFailure()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("discord_api_error", "url", url, "status", resp.StatusCode)
		// a 404 is an answer, not an upstream outage
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("discord_decode_failed", "url", url, "error", err)
		c.breaker.RecordFailure()
		return false
	}

	c.breaker.RecordSuccess()
	return true
}
