package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

const verifyPath = "/api/v1/session/verify"

// Gate proactively checks the session before a protected page renders.
// On an expired access token it refreshes through the shared primitive,
// so the cookie jar ends up patched with the rotated pair; any other
// failure tells the caller to redirect to login.
type Gate struct {
	client *Client
	logger *slog.Logger
}

// NewGate constructs a Gate sharing the client's jar and refresh call.
func NewGate(client *Client, logger *slog.Logger) *Gate {
	return &Gate{client: client, logger: logger.With("component", "session.gate")}
}

// Ensure returns nil when the session is usable, ErrSessionExpired when
// the caller must redirect to login, and other errors for transport
// failures worth surfacing as such.
func (g *Gate) Ensure(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.client.base.JoinPath(verifyPath).String(), nil)
	if err != nil {
		return err
	}
	resp, err := g.client.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	code, _ := rewindErrorCode(resp)
	if code != "expired_access_token" {
		g.logger.Info("session verify failed", "status", resp.StatusCode, "code", code)
		return ErrSessionExpired
	}
	if err := g.client.Refresh(ctx); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return ErrSessionExpired
		}
		return err
	}
	return nil
}
