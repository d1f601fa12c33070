package http

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/infra/config"
)

// CookieConfig names the session cookies and the CSRF header.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	CSRFName    string
	CSRFHeader  string
	Secure      bool
	RefreshTTL  time.Duration
}

// NewCookieConfig derives cookie settings from the auth configuration.
func NewCookieConfig(cfg config.AuthConfig) CookieConfig {
	return CookieConfig{
		AccessName:  cfg.AccessCookie,
		RefreshName: cfg.RefreshCookie,
		CSRFName:    cfg.CSRFCookie,
		CSRFHeader:  cfg.CSRFHeader,
		Secure:      cfg.CookieSecure,
		RefreshTTL:  cfg.RefreshTokenTTL,
	}
}

// setSessionCookies writes the token pair plus a fresh CSRF token. Access
// and refresh cookies are HttpOnly; the CSRF cookie stays readable by
// client script so it can be echoed into the header. All cookies live for
// the refresh TTL: the access cookie must outlive its token's validity so
// an expired token still reaches the server and triggers the refresh flow.
func setSessionCookies(c *gin.Context, cfg CookieConfig, session auth.Session) error {
	csrfToken, err := newCSRFToken()
	if err != nil {
		return err
	}
	maxAge := int(cfg.RefreshTTL.Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.AccessName, session.AccessToken, maxAge, "/", "", cfg.Secure, true)
	c.SetCookie(cfg.RefreshName, session.RefreshToken, maxAge, "/", "", cfg.Secure, true)
	c.SetCookie(cfg.CSRFName, csrfToken, maxAge, "/", "", cfg.Secure, false)
	return nil
}

func clearSessionCookies(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.AccessName, "", -1, "/", "", cfg.Secure, true)
	c.SetCookie(cfg.RefreshName, "", -1, "/", "", cfg.Secure, true)
	c.SetCookie(cfg.CSRFName, "", -1, "/", "", cfg.Secure, false)
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
