package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NexusDevelopments/tradeupsite/internal/discord"
	"github.com/NexusDevelopments/tradeupsite/internal/staff"
)

const defaultServerName = "TradeUp"

// serverSnapshot is the aggregated /api/discord-server response. Every
// dynamic field has a documented default; the endpoint never fails.
type serverSnapshot struct {
	InviteLink  string          `json:"inviteLink"`
	ServerID    string          `json:"serverId"`
	ServerName  string          `json:"serverName"`
	IconURL     *string         `json:"iconUrl"`
	MemberCount int             `json:"memberCount"`
	OnlineCount int             `json:"onlineCount"`
	Staff       []staff.Profile `json:"staff"`
	BotOnline   bool            `json:"botOnline"`
	BotTag      *string         `json:"botTag"`
}

// discordServer aggregates the invite metadata, the widget member list and
// the resolved staff roster into one snapshot. Rebuilt per request; every
// upstream failure degrades to a default, the status is always 200.
func (s *Server) discordServer(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	snapshot := serverSnapshot{
		InviteLink: s.cfg.InviteURL(),
		ServerID:   s.cfg.GuildID,
		ServerName: defaultServerName,
	}

	invite := s.client.FetchInvite(ctx, s.cfg.InviteCode)
	if invite != nil {
		if invite.Guild.Name != "" {
			snapshot.ServerName = invite.Guild.Name
		}
		if invite.Guild.ID != "" {
			snapshot.ServerID = invite.Guild.ID
		}
		if icon := discord.IconURL(invite.Guild.ID, invite.Guild.Icon); icon != "" {
			snapshot.IconURL = &icon
		}
		snapshot.MemberCount = invite.ApproximateMemberCount
		snapshot.OnlineCount = invite.ApproximatePresenceCount
	}

	guildID := s.cfg.GuildID
	if guildID == "" && invite != nil {
		guildID = invite.Guild.ID
	}

	widget := s.client.FetchWidget(ctx, guildID)
	snapshot.Staff = s.resolver.ResolveAll(ctx, widget)

	if s.gateway != nil {
		snapshot.BotOnline = s.gateway.IsReady()
		if tag := s.gateway.CurrentTag(); tag != "" {
			snapshot.BotTag = &tag
		}
	}

	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) botHealth(c *gin.Context) {
	resp := gin.H{
		"botOnline":       false,
		"botTag":          nil,
		"tokenConfigured": s.client.TokenConfigured(),
		"lastError":       nil,
	}

	if s.gateway != nil {
		resp["botOnline"] = s.gateway.IsReady()
		if tag := s.gateway.CurrentTag(); tag != "" {
			resp["botTag"] = tag
		}
		if lastErr := s.gateway.LastError(); lastErr != "" {
			resp["lastError"] = lastErr
		}
	}

	c.JSON(http.StatusOK, resp)
}
