// Package staff merges the REST API, the widget endpoint and the gateway
// connector into enriched profiles for the configured staff roster.
package staff

import (
	"context"
	"log/slog"
	"sync"

	"github.com/NexusDevelopments/tradeupsite/internal/config"
	"github.com/NexusDevelopments/tradeupsite/internal/discord"
)

// restAPI is the subset of the Discord REST client the resolver needs.
type restAPI interface {
	FetchUser(ctx context.Context, userID string) *discord.User
	FetchGuildMember(ctx context.Context, guildID, userID string) *discord.Member
}

// presenceSource is the subset of the gateway connector the resolver needs.
type presenceSource interface {
	LookupMember(guildID, userID string) *discord.MemberSnapshot
}

// Profile is a staff entry enriched from every available source.
// Resolved is true iff at least one of username/displayName/avatarURL
// could be determined.
type Profile struct {
	ID          string  `json:"id"`
	Role        string  `json:"role"`
	Username    *string `json:"username"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Status      string  `json:"status"`
	Resolved    bool    `json:"resolved"`
}

type Resolver struct {
	rest    restAPI
	gateway presenceSource
	guildID string
	entries []config.StaffEntry
	logger  *slog.Logger
}

func NewResolver(rest restAPI, gateway presenceSource, guildID string, entries []config.StaffEntry, logger *slog.Logger) *Resolver {
	return &Resolver{
		rest:    rest,
		gateway: gateway,
		guildID: guildID,
		entries: entries,
		logger:  logger,
	}
}

// ResolveAll resolves every configured entry. Entries are independent, so
// they run concurrently; order of the result matches the configured order.
// The widget member list is fetched once by the caller and shared.
func (r *Resolver) ResolveAll(ctx context.Context, widget []discord.WidgetMember) []Profile {
	profiles := make([]Profile, len(r.entries))

	var wg sync.WaitGroup
	for i, entry := range r.entries {
		wg.Add(1)
		go func(i int, entry config.StaffEntry) {
			defer wg.Done()
			profiles[i] = r.resolveOne(ctx, entry, widget)
		}(i, entry)
	}
	wg.Wait()

	return profiles
}

// sources gathers each field from one upstream; empty string means that
// source has no answer. Field values are merged by firstNonEmpty in the
// documented precedence order.
type sources struct {
	username    string
	displayName string
	globalName  string
	avatarURL   string
	status      string
}

func (r *Resolver) resolveOne(ctx context.Context, entry config.StaffEntry, widget []discord.WidgetMember) Profile {
	var gw sources
	if r.gateway != nil {
		if m := r.gateway.LookupMember(r.guildID, entry.ID); m != nil {
			gw = sources{
				username:    m.Username,
				displayName: m.DisplayName,
				avatarURL:   m.AvatarURL,
				status:      m.Status,
			}
		}
	}

	var api sources
	user := r.rest.FetchUser(ctx, entry.ID)
	if user != nil {
		api = sources{
			username:   user.Username,
			globalName: user.GlobalName,
			avatarURL:  discord.AvatarURL(user.ID, user.Avatar),
		}
	}

	member := r.rest.FetchGuildMember(ctx, r.guildID, entry.ID)
	var nick string
	if member != nil {
		nick = member.Nick
	}

	// the widget anonymizes member ids on most servers, so match by id
	// first and fall back to a username already known from another source
	var wm sources
	if w := widgetFor(widget, entry.ID, firstNonEmpty(gw.username, api.username)); w != nil {
		wm = sources{
			username:   w.Username,
			globalName: w.GlobalName,
			avatarURL:  w.AvatarURL,
			status:     discord.NormalizeStatus(w.Status),
		}
	}

	username := firstNonEmpty(gw.username, api.username, wm.username)
	displayName := firstNonEmpty(gw.displayName, nick, api.globalName, wm.globalName, username)
	avatarURL := firstNonEmpty(gw.avatarURL, api.avatarURL, wm.avatarURL)

	status := firstNonEmpty(gw.status, wm.status)
	if status == "" {
		// a member record with no status source is "unknown", distinct from
		// the plain "offline" default
		if member != nil {
			status = "unknown"
		} else {
			status = "offline"
		}
	}

	resolved := username != "" || displayName != "" || avatarURL != ""
	if !resolved {
		r.logger.Debug("staff_entry_unresolved", "user_id", entry.ID)
	}

	return Profile{
		ID:          entry.ID,
		Role:        entry.Role,
		Username:    strPtr(username),
		DisplayName: strPtr(displayName),
		AvatarURL:   strPtr(avatarURL),
		Status:      status,
		Resolved:    resolved,
	}
}

// firstNonEmpty returns the first value in priority order that has an
// answer.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func widgetFor(widget []discord.WidgetMember, userID, username string) *discord.WidgetMember {
	for i := range widget {
		if widget[i].ID == userID {
			return &widget[i]
		}
	}
	if username == "" {
		return nil
	}
	for i := range widget {
		if widget[i].Username == username {
			return &widget[i]
		}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
