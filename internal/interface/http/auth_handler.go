package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
)

// AuthHandler wires the session endpoints to the auth service.
type AuthHandler struct {
	svc     auth.Service
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc auth.Service, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		cookies: cookies,
		logger:  logger.With("component", "http.auth"),
	}
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeBadRequest, "invalid request body", err))
		return
	}
	view, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": view})
}

// Login validates credentials and sets the session cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeBadRequest, "invalid request body", err))
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, httpErrorFrom(err))
		return
	}
	if err := setSessionCookies(c, h.cookies, session); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, codeInternal, "failed to set session cookies", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": session.User})
}

// RefreshSession exchanges the refresh cookie for a rotated token pair.
// Nothing about the cookies changes when the exchange fails.
func (h *AuthHandler) RefreshSession(c *gin.Context) {
	presented, err := c.Cookie(h.cookies.RefreshName)
	if err != nil || presented == "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidCredentials, "missing refresh token", nil))
		return
	}
	session, rerr := h.svc.Refresh(c.Request.Context(), presented)
	if rerr != nil {
		abortWithError(c, httpErrorFrom(rerr))
		return
	}
	if err := setSessionCookies(c, h.cookies, session); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, codeInternal, "failed to set session cookies", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": session.User})
}

// VerifySession reports the verified claims. Runs behind sessionMiddleware,
// so reaching the handler means the access token checked out.
func (h *AuthHandler) VerifySession(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidAccessToken, "missing access token", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    claims.UserID,
		"role":      claims.Role,
		"expiresAt": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout revokes the stored refresh token when the access token still
// verifies and clears the cookies regardless, so a client with an expired
// session can always log out locally.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookies.AccessName); err == nil && token != "" {
		if claims, verr := h.svc.Verify(c.Request.Context(), token); verr == nil {
			if err := h.svc.Logout(c.Request.Context(), claims.UserID); err != nil {
				h.logger.Warn("failed to revoke refresh token on logout", "user_id", claims.UserID, "error", err)
			}
		}
	}
	clearSessionCookies(c, h.cookies)
	c.Status(http.StatusNoContent)
}
