package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

// sessionMiddleware extracts and verifies the access-token cookie on
// protected routes. Expired and invalid tokens map to distinct codes; the
// client-side retry logic depends on telling them apart.
func sessionMiddleware(svc auth.Service, cookies CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookies.AccessName)
		if err != nil || token == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidAccessToken, "missing access token", nil))
			return
		}
		claims, verr := svc.Verify(c.Request.Context(), token)
		if verr != nil {
			switch {
			case apperrors.IsCode(verr, auth.CodeExpiredAccessToken):
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeExpiredAccessToken, "access token expired", verr))
			case apperrors.IsCode(verr, auth.CodeInvalidAccessToken):
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidAccessToken, "access token invalid", verr))
			default:
				abortWithError(c, httpErrorFrom(verr))
			}
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// requireRole gates a route group on the role carried in the verified
// claims. Must run after sessionMiddleware.
func requireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := getClaims(c)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, auth.CodeInvalidAccessToken, "missing access token", nil))
			return
		}
		if claims.Role != role {
			abortWithError(c, NewHTTPError(http.StatusForbidden, auth.CodeInsufficientPermissions, "insufficient permissions", nil))
			return
		}
		c.Next()
	}
}
