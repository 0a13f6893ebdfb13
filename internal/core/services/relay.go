package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure RelayService implements the interface.
var _ driving.RelayService = (*RelayService)(nil)

// MaxRelayAttempts bounds one outbound call: the original plus two retries,
// each retry preceded by a full recover chain.
const MaxRelayAttempts = 3

// Relay outcome labels for metrics.
const (
	outcomeOK          = "ok"
	outcomeAuthRetry   = "auth_retry"
	outcomeExhausted   = "auth_exhausted"
	outcomeTransport   = "transport_error"
	outcomeHTTPError   = "http_error"
	outcomeFallback    = "fallback"
	outcomeReauthFatal = "reauth_required"
)

// RelayService sends authenticated calls to business webhooks.
type RelayService struct {
	sessions driving.SessionService
	backend  driven.BackendClient
	metrics  driven.Metrics
	now      func() time.Time

	mu       sync.RWMutex
	settings domain.RelaySettings
}

// NewRelayService creates a relay over the session manager and backend client.
func NewRelayService(
	sessions driving.SessionService,
	backend driven.BackendClient,
	settings domain.RelaySettings,
) *RelayService {
	return &RelayService{
		sessions: sessions,
		backend:  backend,
		settings: settings,
		now:      time.Now,
	}
}

// SetMetrics attaches a metrics sink. Nil disables metrics.
func (r *RelayService) SetMetrics(metrics driven.Metrics) {
	r.metrics = metrics
}

// Configure replaces the relay settings, e.g. after a config reload.
func (r *RelayService) Configure(settings domain.RelaySettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}

func (r *RelayService) currentSettings() domain.RelaySettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Chat asks the assistant a question.
func (r *RelayService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	if req.Query == "" && req.ThreadID == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	return r.send(ctx, domain.EndpointChat, req.Payload)
}

// Task sends a task-management payload. userId is filled in when absent.
func (r *RelayService) Task(ctx context.Context, payload map[string]any) (*domain.Reply, error) {
	return r.Send(ctx, domain.RelayRequest{Endpoint: domain.EndpointTask, Payload: payload})
}

// Send relays req under the retry policy.
func (r *RelayService) Send(ctx context.Context, req domain.RelayRequest) (*domain.Reply, error) {
	if !req.Endpoint.IsValid() {
		return nil, fmt.Errorf("%w: unknown endpoint %q", domain.ErrInvalidInput, req.Endpoint)
	}
	return r.send(ctx, req.Endpoint, func(userID string) map[string]any {
		payload := make(map[string]any, len(req.Payload)+1)
		for k, v := range req.Payload {
			payload[k] = v
		}
		if _, ok := payload["userId"]; !ok {
			payload["userId"] = userID
		}
		return payload
	})
}

// send runs the retry policy. build makes the payload for the signed-in user.
func (r *RelayService) send(
	ctx context.Context,
	endpoint domain.Endpoint,
	build func(userID string) map[string]any,
) (*domain.Reply, error) {
	settings := r.currentSettings()
	logger.Section("Relay " + string(endpoint))

	sess, err := r.sessions.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !sess.Authenticated()) {
		r.observe(endpoint, outcomeReauthFatal)
		return nil, r.unavailable(endpoint, domain.ErrReauthRequired)
	}
	if err != nil {
		return nil, r.unavailable(endpoint, err)
	}

	if !IsUsable(sess.Credential.AccessToken, r.now()) {
		logger.Debug("relay %s: token not usable, recovering before send", endpoint)
		sess, err = r.sessions.Recover(ctx)
		if err != nil {
			r.observe(endpoint, outcomeReauthFatal)
			return nil, r.unavailable(endpoint, err)
		}
	}

	payload := build(sess.Identity.UserID)
	request := domain.RelayRequest{Endpoint: endpoint, Payload: payload}

	for attempt := 1; ; attempt++ {
		logger.Debug("relay %s: attempt %d/%d", endpoint, attempt, MaxRelayAttempts)
		resp, err := r.backend.Post(ctx, endpoint, sess.Credential.AccessToken, payload)
		if err != nil {
			r.observe(endpoint, outcomeTransport)
			if settings.FallbackReplies {
				return r.fallback(request, err), nil
			}
			return nil, r.unavailable(endpoint, err)
		}

		if settings.IsAuthRejection(resp.Status) {
			if attempt >= MaxRelayAttempts {
				r.observe(endpoint, outcomeExhausted)
				return nil, r.unavailable(endpoint, fmt.Errorf("still rejected after %d attempts: %w",
					attempt, &domain.WebhookError{Status: resp.Status}))
			}
			r.observe(endpoint, outcomeAuthRetry)
			logger.Debug("relay %s: auth rejected with %d, recovering", endpoint, resp.Status)
			sess, err = r.sessions.Recover(ctx)
			if err != nil {
				r.observe(endpoint, outcomeReauthFatal)
				return nil, r.unavailable(endpoint, err)
			}
			continue
		}

		if resp.Status == http.StatusNotFound && settings.FallbackReplies {
			r.observe(endpoint, outcomeHTTPError)
			return r.fallback(request, &domain.WebhookError{Status: resp.Status}), nil
		}

		if resp.Status < 200 || resp.Status > 299 {
			r.observe(endpoint, outcomeHTTPError)
			return nil, r.unavailable(endpoint, &domain.WebhookError{Status: resp.Status, Body: truncate(resp.Body, 200)})
		}

		r.observe(endpoint, outcomeOK)
		reply := domain.NormalizeReply(resp.Body)
		return &reply, nil
	}
}

// unavailable logs cause and returns the generic failure.
// A fatal recovery also matches ErrReauthRequired so callers can prompt for sign-in.
func (r *RelayService) unavailable(endpoint domain.Endpoint, cause error) error {
	logger.Error(cause, "relay %s failed", endpoint)
	if errors.Is(cause, domain.ErrReauthRequired) {
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, domain.ErrReauthRequired)
	}
	return domain.ErrServiceUnavailable
}

func (r *RelayService) fallback(req domain.RelayRequest, cause error) *domain.Reply {
	logger.Warn("relay %s: webhook unavailable, using fallback reply: %v", req.Endpoint, cause)
	r.observe(req.Endpoint, outcomeFallback)
	reply := domain.FallbackReply(req)
	return &reply
}

func (r *RelayService) observe(endpoint domain.Endpoint, outcome string) {
	if r.metrics != nil {
		r.metrics.RelayAttempted(endpoint, outcome)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "... (" + strconv.Itoa(len(b)) + " bytes)"
}
