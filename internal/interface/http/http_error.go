package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

// Error codes owned by the transport layer. Domain codes come from the
// auth and recipe packages; together they form the closed enumeration
// rendered in the error envelope.
const (
	codeBadRequest        = "bad_request"
	codeNotFound          = "not_found"
	codeMissingCSRFCookie = "missing_csrf_cookie"
	codeMissingCSRFHeader = "missing_csrf_header"
	codeCSRFTokenMismatch = "csrf_token_mismatch"
	codeRateLimited       = "rate_limit_exceeded"
	codeInternal          = "internal_error"
)

// statusForCode is the static code-to-status table. Every code in the
// closed set is enumerated; anything unknown is treated as an internal
// fault rather than silently mapping to a zero status.
func statusForCode(code string) int {
	switch code {
	case codeBadRequest:
		return http.StatusBadRequest
	case "invalid_credentials", "invalid_access_token", "expired_access_token":
		return http.StatusUnauthorized
	case "insufficient_permissions", codeMissingCSRFCookie, codeMissingCSRFHeader, codeCSRFTokenMismatch:
		return http.StatusForbidden
	case codeNotFound:
		return http.StatusNotFound
	case "email_exists":
		return http.StatusConflict
	case "too_many_attempts", codeRateLimited:
		return http.StatusTooManyRequests
	case codeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// knownCodes lists the closed enumeration; tests assert the table stays
// exhaustive when codes are added.
var knownCodes = []string{
	codeBadRequest,
	"invalid_credentials",
	"invalid_access_token",
	"expired_access_token",
	"insufficient_permissions",
	codeMissingCSRFCookie,
	codeMissingCSRFHeader,
	codeCSRFTokenMismatch,
	codeNotFound,
	"email_exists",
	"too_many_attempts",
	codeRateLimited,
	codeInternal,
}

// HTTPError captures the metadata required to serialize an error response.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// httpErrorFrom maps a domain error onto the envelope via the static code
// table. Untyped errors become generic internal faults.
func httpErrorFrom(err error) *HTTPError {
	code := apperrors.Code(err)
	if code == "" {
		code = codeInternal
	}
	message := errMessage(err)
	if status := statusForCode(code); status < http.StatusInternalServerError {
		return NewHTTPError(status, code, message, err)
	}
	return NewHTTPError(http.StatusInternalServerError, codeInternal, "something went wrong", err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return httpErrorFrom(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
