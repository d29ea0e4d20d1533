package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/NexusDevelopments/tradeupsite/internal/session"
)

const (
	sessionCookieName = "tradeup_session"
	statusPage        = "/status"
	callbackPath      = "/auth/discord/callback"

	notAuthorizedMessage = "Your Discord account is not authorized to access this page."
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

func (s *Server) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Scopes:       []string{"identify"},
		Endpoint:     discordEndpoint,
		RedirectURL:  redirectURI,
	}
}

// redirectURI computes the callback URI the provider must send the user
// back to. Priority: explicit configured URI, then the configured public
// base URL, then the incoming request's host and scheme.
func (s *Server) redirectURI(c *gin.Context) string {
	if s.cfg.RedirectURI != "" {
		return s.cfg.RedirectURI
	}
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + callbackPath
	}

	scheme := "http"
	if requestIsSecure(c) {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + callbackPath
}

// requestIsSecure detects TLS either directly or via the proxy's
// forwarded-proto header.
func requestIsSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// sanitizeRedirect keeps redirect targets local to this site; anything that
// could leave the origin falls back to the status page.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return statusPage
	}
	return target
}

func errorRedirect(c *gin.Context, marker string) {
	c.Redirect(http.StatusFound, statusPage+"?error="+marker)
}

func (s *Server) authLogin(c *gin.Context) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		s.log.Warn("oauth_not_configured")
		errorRedirect(c, "oauth-not-configured")
		return
	}

	target := sanitizeRedirect(c.Query("redirect"))
	nonce := s.states.Begin(target)

	authURL := s.oauthConfig(s.redirectURI(c)).AuthCodeURL(nonce)
	c.Redirect(http.StatusFound, authURL)
}

func (s *Server) authCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	// the nonce is single-use: consume it before anything can fail so a
	// replayed callback always sees an unknown state
	rec, ok := s.states.Consume(state)
	if !ok {
		s.log.Warn("oauth_state_rejected", "state_present", state != "")
		errorRedirect(c, "invalid-state")
		return
	}

	if code == "" {
		errorRedirect(c, "missing-code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.oauthClient)

	token, err := s.oauthConfig(s.redirectURI(c)).Exchange(ctx, code)
	if err != nil {
		s.log.Warn("oauth_exchange_failed", "error", err)
		errorRedirect(c, "exchange-failed")
		return
	}

	user, err := s.client.FetchSelf(ctx, token.AccessToken)
	if err != nil {
		s.log.Warn("oauth_identity_fetch_failed", "error", err)
		errorRedirect(c, "exchange-failed")
		return
	}

	if !s.cfg.IsAllowed(user.ID) {
		s.log.Info("login_rejected_not_allowed", "user_id", user.ID)
		s.clearSessionCookie(c)
		errorRedirect(c, "not-allowed")
		return
	}

	sess := &session.Session{
		Token:     session.NewToken(),
		User:      *user,
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}
	s.sessions.Put(ctx, sess)

	s.setSessionCookie(c, sess.Token)
	s.log.Info("login_succeeded", "user_id", user.ID, "username", user.Username)

	c.Redirect(http.StatusFound, sanitizeRedirect(rec.RedirectTarget))
}

func (s *Server) authLogout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookieName); err == nil && token != "" {
		ctx, cancel := s.ctx(c)
		defer cancel()
		s.sessions.Delete(ctx, token)
	}

	s.clearSessionCookie(c)
	c.Redirect(http.StatusFound, statusPage)
}

func (s *Server) authMe(c *gin.Context) {
	resp := gin.H{
		"authenticated": false,
		"authorized":    false,
		"user":          nil,
		"message":       nil,
	}

	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	sess, ok := s.sessions.Get(ctx, token)
	if !ok {
		c.JSON(http.StatusOK, resp)
		return
	}

	resp["authenticated"] = true
	resp["user"] = sess.User

	if s.cfg.IsAllowed(sess.User.ID) {
		resp["authorized"] = true
	} else {
		resp["message"] = notAuthorizedMessage
	}

	c.JSON(http.StatusOK, resp)
}

// oauthDebug exposes the effective OAuth configuration without its secrets.
func (s *Server) oauthDebug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"redirectUri":             s.redirectURI(c),
		"clientIdConfigured":      s.cfg.ClientID != "",
		"clientSecretConfigured":  s.cfg.ClientSecret != "",
		"explicitRedirectUri":     s.cfg.RedirectURI != "",
		"publicBaseUrlConfigured": s.cfg.PublicBaseURL != "",
	})
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(s.cfg.SessionTTL.Seconds()), "/", "", requestIsSecure(c), true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", requestIsSecure(c), true)
}
