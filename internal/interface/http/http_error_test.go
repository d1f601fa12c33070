package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

func TestStatusForCode_ClosedSet(t *testing.T) {
	for _, code := range knownCodes {
		status := statusForCode(code)
		require.NotZero(t, status, "code %q", code)
		if code == codeInternal {
			require.Equal(t, http.StatusInternalServerError, status)
		} else {
			require.Less(t, status, http.StatusInternalServerError, "code %q must not leak as an internal fault", code)
		}
	}
}

func TestStatusForCode_UnknownDefaultsToInternal(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, statusForCode("no_such_code"))
	require.Equal(t, http.StatusInternalServerError, statusForCode(""))
}

func TestHTTPErrorFrom(t *testing.T) {
	// Domain codes keep their status and message.
	err := apperrors.Wrap("invalid_credentials", "invalid email or password", nil)
	httpErr := httpErrorFrom(err)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)
	require.Equal(t, "invalid_credentials", httpErr.Code)
	require.Equal(t, "invalid email or password", httpErr.Message)

	// Unknown codes collapse to the generic internal envelope so stray
	// messages never reach clients.
	err = apperrors.Wrap("made_up_code", "sensitive detail", nil)
	httpErr = httpErrorFrom(err)
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
	require.Equal(t, codeInternal, httpErr.Code)
	require.Equal(t, "something went wrong", httpErr.Message)

	// Untyped errors are internal faults as well.
	httpErr = httpErrorFrom(errors.New("pg: connection refused"))
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
	require.Equal(t, codeInternal, httpErr.Code)
	require.Equal(t, "something went wrong", httpErr.Message)
}
