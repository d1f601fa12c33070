package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// csrfMiddleware enforces the double-submit check on state-changing
// methods: the CSRF cookie must be echoed verbatim in the header. Missing
// cookie, missing header, and mismatch are distinct codes so same-origin
// clients can tell configuration bugs from stale tokens. Plain equality is
// enough here; CSRF tokens defend against cross-origin forgery, not
// on-path attackers.
func csrfMiddleware(cookies CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		cookie, err := c.Cookie(cookies.CSRFName)
		if err != nil || cookie == "" {
			abortWithError(c, NewHTTPError(http.StatusForbidden, codeMissingCSRFCookie, "missing CSRF cookie", nil))
			return
		}
		header := c.GetHeader(cookies.CSRFHeader)
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusForbidden, codeMissingCSRFHeader, "missing CSRF header", nil))
			return
		}
		if cookie != header {
			abortWithError(c, NewHTTPError(http.StatusForbidden, codeCSRFTokenMismatch, "CSRF token mismatch", nil))
			return
		}
		c.Next()
	}
}
