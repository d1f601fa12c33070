// Package session wraps an HTTP client with the cookie-session protocol:
// CSRF header injection, transparent refresh of expired access tokens, and
// bounded retries for transient failures.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is terminal: the refresh token itself was rejected and
// no amount of retrying will help. The caller must send the user to login.
var ErrSessionExpired = errors.New("session expired, login required")

const refreshPath = "/api/v1/session/refresh"

// Config drives the client wrapper.
type Config struct {
	BaseURL      string
	CSRFCookie   string
	CSRFHeader   string
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Client performs session-aware requests against the API. Safe for
// concurrent use: simultaneous requests that all hit an expired access
// token share a single in-flight refresh call.
type Client struct {
	cfg     Config
	http    *http.Client
	base    *url.URL
	refresh singleflight.Group
	logger  *slog.Logger
}

// New constructs a Client with its own cookie jar.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Jar: jar, Timeout: cfg.Timeout},
		base:   base,
		logger: logger.With("component", "session.client"),
	}, nil
}

// Do sends the request, healing an expired access token with exactly one
// refresh-and-replay, and retrying transient failures up to MaxRetries.
// The body is buffered so replays resend identical bytes.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	refreshed := false
	for attempt := 0; ; attempt++ {
		attemptReq, err := c.prepare(req, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(attemptReq)
		if err != nil {
			if attempt < c.cfg.MaxRetries {
				c.backoff(attempt)
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			code, rerr := rewindErrorCode(resp)
			if rerr != nil {
				return nil, rerr
			}
			if code == "expired_access_token" && !refreshed {
				resp.Body.Close()
				refreshed = true
				if err := c.Refresh(req.Context()); err != nil {
					return nil, err
				}
				continue
			}
			return resp, nil
		}

		if retryableStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			resp.Body.Close()
			c.logger.Warn("transient failure, retrying request", "path", req.URL.Path, "status", resp.StatusCode, "attempt", attempt+1)
			c.backoff(attempt)
			continue
		}
		return resp, nil
	}
}

// Refresh performs the refresh call. Concurrent callers are collapsed into
// one request; everyone observes the same outcome and the shared jar ends
// up holding the single rotated pair. The winning caller's context governs
// the underlying request.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(refreshPath).String(), nil)
	if err != nil {
		return err
	}
	c.injectCSRF(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrSessionExpired
	default:
		return fmt.Errorf("refresh failed with status %d", resp.StatusCode)
	}
}

// prepare clones the original request with a fresh body reader and the
// current CSRF cookie copied into the header.
func (c *Client) prepare(req *http.Request, body []byte) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	}
	if stateChanging(req.Method) {
		c.injectCSRF(clone)
	}
	return clone, nil
}

func (c *Client) injectCSRF(req *http.Request) {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == c.cfg.CSRFCookie {
			req.Header.Set(c.cfg.CSRFHeader, cookie.Value)
			return
		}
	}
}

func (c *Client) backoff(attempt int) {
	if c.cfg.RetryBackoff > 0 {
		time.Sleep(c.cfg.RetryBackoff * time.Duration(1<<attempt))
	}
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// rewindErrorCode reads the envelope code out of the response and restores
// the body so the caller still sees the full payload.
func rewindErrorCode(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", nil
	}
	return envelope.Code, nil
}
