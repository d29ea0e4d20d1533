package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NexusDevelopments/tradeupsite/internal/logging"
)

const gatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// identify intents: GUILDS | GUILD_MEMBERS | GUILD_PRESENCES
const gatewayIntents = (1 << 0) | (1 << 1) | (1 << 8)

// closeAuthFailed is the close code Discord sends for a bad bot token.
const closeAuthFailed = 4004

const errMissingToken = "Missing Discord bot token"

type GatewayState int

const (
	StateDisconnected GatewayState = iota
	StateConnecting
	StateReady
)

func (s GatewayState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// MemberSnapshot is the live view of one guild member as observed over the
// gateway. Empty fields mean the gateway has no answer for that field.
type MemberSnapshot struct {
	Username    string
	DisplayName string
	AvatarURL   string
	Status      string
}

// Gateway maintains a long-lived bot connection to the Discord event stream
// to observe presence and member data the REST API does not expose.
// State machine: Disconnected -> Connecting -> Ready, back to Disconnected
// on transport drop (with reconnect) or auth failure (terminal).
type Gateway struct {
	token   string
	guildID string
	logger  *slog.Logger
	url     string

	mu                sync.RWMutex
	state             GatewayState
	lastErr           string
	tag               string
	conn              *websocket.Conn
	heartbeatInterval time.Duration
	lastSequence      int64
	members           map[string]map[string]*memberRecord // guild_id -> user_id

	stopOnce sync.Once
	stop     chan struct{}
}

type memberRecord struct {
	username   string
	globalName string
	nick       string
	avatarHash string
	userID     string
	status     string // normalized; "" until a presence is observed
}

type gatewayMessage struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	T  string          `json:"t,omitempty"`
	S  int64           `json:"s,omitempty"`
}

func NewGateway(token, guildID string, logger *slog.Logger) *Gateway {
	g := &Gateway{
		token:   token,
		guildID: guildID,
		logger:  logger,
		url:     gatewayURL,
		members: make(map[string]map[string]*memberRecord),
		stop:    make(chan struct{}),
	}
	if token == "" {
		g.lastErr = errMissingToken
	}
	return g
}

// Start launches the connection loop. Without a token the connector stays
// Disconnected and only reports the missing-token error.
func (g *Gateway) Start(ctx context.Context) {
	if g.token == "" {
		g.logger.Warn("gateway_not_started", "reason", "missing bot token")
		return
	}
	go g.run(ctx)
}

func (g *Gateway) Close() {
	g.stopOnce.Do(func() { close(g.stop) })
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		_ = g.conn.Close()
	}
	g.state = StateDisconnected
}

func (g *Gateway) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateReady
}

func (g *Gateway) State() GatewayState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Gateway) LastError() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}

// CurrentTag returns the connected bot's tag, or "" before the first READY.
func (g *Gateway) CurrentTag() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tag
}

// LookupMember returns the live view of a member, or nil when the member is
// unknown to the gateway. Lookup failures are always soft.
func (g *Gateway) LookupMember(guildID, userID string) *MemberSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.state != StateReady {
		return nil
	}
	guild, ok := g.members[guildID]
	if !ok {
		return nil
	}
	rec, ok := guild[userID]
	if !ok {
		return nil
	}

	display := rec.nick
	if display == "" {
		display = rec.globalName
	}
	return &MemberSnapshot{
		Username:    rec.username,
		DisplayName: display,
		AvatarURL:   AvatarURL(rec.userID, rec.avatarHash),
		Status:      rec.status,
	}
}

// NormalizeStatus maps a raw gateway presence status to the public set:
// online, idle and dnd pass through, everything else (including
// "invisible") is offline.
func NormalizeStatus(s string) string {
	switch s {
	case "online", "idle", "dnd":
		return s
	default:
		return "offline"
	}
}

func (g *Gateway) run(ctx context.Context) {
	backoff := 5 * time.Second
	const maxBackoff = 60 * time.Second

	for {
		select {
		case <-g.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		err := g.connectAndListen(ctx)
		if err == nil {
			return
		}

		if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Code == closeAuthFailed {
			g.setDisconnected("gateway authentication failed: invalid bot token")
			g.logger.Error("gateway_auth_failed")
			return
		}

		g.setDisconnected(err.Error())
		g.logger.Warn("gateway_disconnected", "error", err, "retry_in", backoff.String())

		select {
		case <-time.After(backoff):
		case <-g.stop:
			return
		case <-ctx.Done():
			return
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func (g *Gateway) connectAndListen(ctx context.Context) error {
	g.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, g.url, http.Header{})
	if err != nil {
		return fmt.Errorf("gateway_dial_failed: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	defer conn.Close()

	var hello gatewayMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("gateway_hello_read_failed: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected HELLO opcode, got %d", hello.Op)
	}

	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("gateway_hello_parse_failed: %w", err)
	}

	g.mu.Lock()
	g.heartbeatInterval = time.Duration(helloData.HeartbeatInterval) * time.Millisecond
	g.mu.Unlock()

	identify := map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   g.token,
			"intents": gatewayIntents,
			"properties": map[string]any{
				"os":      "linux",
				"browser": "tradeupsite",
				"device":  "tradeupsite",
			},
		},
	}
	if err := conn.WriteJSON(identify); err != nil {
		return fmt.Errorf("gateway_identify_failed: %w", err)
	}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go g.heartbeatLoop(conn, heartbeatDone)

	for {
		select {
		case <-g.stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		var msg gatewayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if msg.S > 0 {
			g.mu.Lock()
			g.lastSequence = msg.S
			g.mu.Unlock()
		}

		switch msg.Op {
		case opDispatch:
			g.handleDispatch(msg.T, msg.D)
		case opHeartbeat:
			g.sendHeartbeat(conn)
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway_requested_reconnect: op=%d", msg.Op)
		case opHeartbeatACK:
			// nothing to do
		}
	}
}

func (g *Gateway) heartbeatLoop(conn *websocket.Conn, done <-chan struct{}) {
	g.mu.RLock()
	interval := g.heartbeatInterval
	g.mu.RUnlock()
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sendHeartbeat(conn)
		case <-done:
			return
		case <-g.stop:
			return
		}
	}
}

func (g *Gateway) sendHeartbeat(conn *websocket.Conn) {
	g.mu.RLock()
	seq := g.lastSequence
	g.mu.RUnlock()

	var seqValue any
	if seq > 0 {
		seqValue = seq
	}
	if err := conn.WriteJSON(map[string]any{"op": opHeartbeat, "d": seqValue}); err != nil {
		g.logger.Debug("heartbeat_send_failed", "error", err)
	}
}

func (g *Gateway) handleDispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User User `json:"user"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			g.logger.Warn("ready_parse_failed", "error", err)
			return
		}
		g.mu.Lock()
		g.tag = ready.User.Tag()
		g.state = StateReady
		g.lastErr = ""
		g.mu.Unlock()
		g.logger.Info("gateway_connected",
			"bot_tag", ready.User.Tag(),
			"token", logging.MaskToken(g.token),
		)

	case "GUILD_CREATE":
		g.handleGuildCreate(data)

	case "GUILD_MEMBER_ADD", "GUILD_MEMBER_UPDATE":
		var ev struct {
			GuildID string `json:"guild_id"`
			User    User   `json:"user"`
			Nick    string `json:"nick"`
		}
		if err := json.Unmarshal(data, &ev); err != nil || ev.User.ID == "" {
			return
		}
		g.mu.Lock()
		rec := g.member(ev.GuildID, ev.User.ID)
		rec.username = ev.User.Username
		rec.globalName = ev.User.GlobalName
		rec.nick = ev.Nick
		rec.avatarHash = ev.User.Avatar
		g.mu.Unlock()

	case "GUILD_MEMBER_REMOVE":
		var ev struct {
			GuildID string `json:"guild_id"`
			User    User   `json:"user"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		g.mu.Lock()
		if guild, ok := g.members[ev.GuildID]; ok {
			delete(guild, ev.User.ID)
		}
		g.mu.Unlock()

	case "PRESENCE_UPDATE":
		var ev struct {
			GuildID string `json:"guild_id"`
			User    User   `json:"user"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(data, &ev); err != nil || ev.User.ID == "" {
			return
		}
		g.mu.Lock()
		rec := g.member(ev.GuildID, ev.User.ID)
		rec.status = NormalizeStatus(ev.Status)
		if ev.User.Username != "" {
			rec.username = ev.User.Username
		}
		if ev.User.Avatar != "" {
			rec.avatarHash = ev.User.Avatar
		}
		g.mu.Unlock()
	}
}

func (g *Gateway) handleGuildCreate(data json.RawMessage) {
	var guild struct {
		ID      string `json:"id"`
		Members []struct {
			User User   `json:"user"`
			Nick string `json:"nick"`
		} `json:"members"`
		Presences []struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			Status string `json:"status"`
		} `json:"presences"`
	}
	if err := json.Unmarshal(data, &guild); err != nil {
		g.logger.Warn("guild_create_parse_failed", "error", err)
		return
	}

	g.mu.Lock()
	for _, m := range guild.Members {
		if m.User.ID == "" {
			continue
		}
		rec := g.member(guild.ID, m.User.ID)
		rec.username = m.User.Username
		rec.globalName = m.User.GlobalName
		rec.nick = m.Nick
		rec.avatarHash = m.User.Avatar
	}
	for _, p := range guild.Presences {
		if p.User.ID == "" {
			continue
		}
		rec := g.member(guild.ID, p.User.ID)
		rec.status = NormalizeStatus(p.Status)
	}
	memberCount := len(g.members[guild.ID])
	g.mu.Unlock()

	g.logger.Info("guild_cached", "guild_id", guild.ID, "members", memberCount)
}

// member returns the record for guild/user, creating it if needed.
// Caller must hold g.mu.
func (g *Gateway) member(guildID, userID string) *memberRecord {
	guild, ok := g.members[guildID]
	if !ok {
		guild = make(map[string]*memberRecord)
		g.members[guildID] = guild
	}
	rec, ok := guild[userID]
	if !ok {
		rec = &memberRecord{userID: userID}
		guild[userID] = rec
	}
	return rec
}

func (g *Gateway) setState(s GatewayState) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func (g *Gateway) setDisconnected(errMsg string) {
	g.mu.Lock()
	g.state = StateDisconnected
	g.lastErr = errMsg
	g.mu.Unlock()
}
