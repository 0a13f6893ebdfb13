package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.RenewalClient = (*Client)(nil)
	_ driven.BackendClient = (*Client)(nil)
)

const (
	// maxBodySize bounds how much of a response is read.
	maxBodySize = 1 << 20

	// maxErrorBody bounds the body kept on a WebhookError.
	maxErrorBody = 256

	userAgent = "saai"
)

// Client talks JSON over HTTP to the remote automation service.
// Every call is bounded by the configured timeout and never retried here.
type Client struct {
	mu       sync.RWMutex
	settings domain.BackendSettings

	http    *http.Client
	limiter *RateLimiter
	now     func() time.Time
}

// NewClient creates a client for the given backend settings.
func NewClient(settings domain.BackendSettings) *Client {
	return &Client{
		settings: settings,
		http:     &http.Client{},
		limiter:  NewRateLimiter(settings.RatePerSecond),
		now:      time.Now,
	}
}

// Configure replaces the settings, e.g. after a config reload.
func (c *Client) Configure(settings domain.BackendSettings) {
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	c.limiter.SetRate(settings.RatePerSecond)
}

func (c *Client) current() domain.BackendSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Grant runs one recovery strategy against its renewal endpoint.
func (c *Client) Grant(ctx context.Context, kind domain.GrantKind, req domain.GrantRequest) (*domain.Grant, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown grant %q", domain.ErrInvalidInput, kind)
	}
	settings := c.current()

	resp, err := c.do(ctx, settings, http.MethodPost, settings.URL(settings.GrantPath(kind)), req.AccessToken, grantBody(kind, req))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%s: %w", kind, resp.webhookError())
	}

	var body map[string]any
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrMissingToken)
	}

	token := firstString(body, settings.TokenFields...)
	if token == "" {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrMissingToken)
	}

	return &domain.Grant{
		AccessToken:  token,
		RefreshToken: firstString(body, "refreshToken", "refresh_token"),
		ExpiresIn:    seconds(body, "expiresIn", "expires_in"),
	}, nil
}

// grantBody builds the JSON body for a strategy.
func grantBody(kind domain.GrantKind, req domain.GrantRequest) map[string]any {
	body := map[string]any{
		"userId":    req.UserID,
		"grantType": kind.String(),
	}
	if req.SessionID != "" {
		body["sessionId"] = req.SessionID
	}

	switch kind {
	case domain.GrantRefresh:
		body["refreshToken"] = req.RefreshToken
		body["extendLifetime"] = true
	case domain.GrantSilentReauth:
		body["refreshToken"] = req.RefreshToken
		body["keepSessionAlive"] = true
	case domain.GrantSessionExtension:
		body["action"] = "extend_session"
		body["prolongLifetime"] = true
		body["generateBackupToken"] = true
	}
	return body
}

// StartOAuth asks the service for PKCE parameters.
func (c *Client) StartOAuth(ctx context.Context, returnURL string) (*domain.OAuthStart, error) {
	settings := c.current()

	target, err := url.Parse(settings.URL(settings.StartPath))
	if err != nil {
		return nil, fmt.Errorf("%w: start url: %w", domain.ErrInvalidInput, err)
	}
	if returnURL != "" {
		q := target.Query()
		q.Set("return_to", returnURL)
		target.RawQuery = q.Encode()
	}

	resp, err := c.do(ctx, settings, http.MethodGet, target.String(), "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.webhookError()
	}

	var start domain.OAuthStart
	if err := json.Unmarshal(resp.body, &start); err != nil {
		return nil, fmt.Errorf("%w: start response: %w", domain.ErrProtocolViolation, err)
	}
	if err := start.Validate(); err != nil {
		return nil, err
	}
	return &start, nil
}

// Post sends an authenticated call to a business endpoint.
func (c *Client) Post(ctx context.Context, endpoint domain.Endpoint, accessToken string, payload any) (*domain.WebhookResponse, error) {
	settings := c.current()
	path := settings.EndpointPath(endpoint)
	if path == "" {
		return nil, fmt.Errorf("%w: unknown endpoint %q", domain.ErrInvalidInput, endpoint)
	}

	resp, err := c.do(ctx, settings, http.MethodPost, settings.URL(path), accessToken, payload)
	if err != nil {
		return nil, err
	}
	return &domain.WebhookResponse{Status: resp.status, Body: resp.body}, nil
}

// heartbeatResponse is the remote answer to a heartbeat.
type heartbeatResponse struct {
	Success      *bool  `json:"success"`
	RefreshToken string `json:"refreshToken"`
}

// Heartbeat keeps the remote session alive.
func (c *Client) Heartbeat(ctx context.Context, accessToken string, req domain.HeartbeatRequest) (*domain.HeartbeatResult, error) {
	settings := c.current()

	body := map[string]any{
		"userId":    req.UserID,
		"action":    "heartbeat",
		"timestamp": c.now().UnixMilli(),
		"source":    req.Source,
	}
	if req.SessionID != "" {
		body["sessionId"] = req.SessionID
	}

	resp, err := c.do(ctx, settings, http.MethodPost, settings.URL(settings.HeartbeatPath), accessToken, body)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.webhookError()
	}

	var hb heartbeatResponse
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, &hb); err != nil {
			logger.Debug("backend: heartbeat response is not JSON: %v", err)
		}
	}

	return &domain.HeartbeatResult{
		Active:       hb.Success == nil || *hb.Success,
		RefreshToken: hb.RefreshToken,
	}, nil
}

// response is a fully read HTTP answer.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) webhookError() error {
	body := bytes.TrimSpace(r.body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &domain.WebhookError{Status: r.status, Body: string(body)}
}

// do sends one request within the configured timeout and reads the body.
func (c *Client) do(ctx context.Context, settings domain.BackendSettings, method, target, accessToken string, payload any) (*response, error) {
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, fmt.Errorf("rate limit wait: %w", err))
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request: %w", domain.ErrInvalidInput, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	logger.Debug("backend: %s %s", method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if c.limiter.Observe(resp) {
		logger.Warn("backend: %s asked to back off until %s", req.URL.Path, c.limiter.BlockedUntil().Format(time.RFC3339))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("reading response: %w", err))
	}

	logger.Debug("backend: %s %s -> %d", method, req.URL.Path, resp.StatusCode)
	return &response{status: resp.StatusCode, body: data}, nil
}

// classify maps a transport failure to ErrTimeout or ErrNetwork.
// Caller cancellation is passed through untouched.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
}

// firstString returns the first non-empty string field among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// seconds reads a numeric lifetime in seconds.
func seconds(m map[string]any, keys ...string) time.Duration {
	for _, key := range keys {
		if n, ok := m[key].(float64); ok && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 0
}
