package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// AuthService runs the PKCE bootstrap: start, authorize, callback, verify, commit.
// Every failure is terminal and nothing is committed unless all steps pass.
type AuthService struct {
	sessions   driving.SessionService
	backend    driven.BackendClient
	authorizer driven.Authorizer
	urls       driven.AuthURLBuilder
	now        func() time.Time
}

// NewAuthService creates the OAuth bootstrap service.
func NewAuthService(
	sessions driving.SessionService,
	backend driven.BackendClient,
	authorizer driven.Authorizer,
	urls driven.AuthURLBuilder,
) *AuthService {
	return &AuthService{
		sessions:   sessions,
		backend:    backend,
		authorizer: authorizer,
		urls:       urls,
		now:        time.Now,
	}
}

// Connect signs the user in and commits the new session.
func (a *AuthService) Connect(ctx context.Context) (*domain.Session, error) {
	if a.backend == nil || a.authorizer == nil || a.urls == nil {
		return nil, domain.ErrNotImplemented
	}
	logger.Section("OAuth Bootstrap")

	pending, err := a.authorizer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	defer func() {
		if cerr := pending.Close(); cerr != nil {
			logger.Warn("closing callback listener: %v", cerr)
		}
	}()

	// Start
	start, err := a.backend.StartOAuth(ctx, pending.ReturnURL())
	if err != nil {
		return nil, classifyStartError(err)
	}
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("%w: start response missing state or challenge", err)
	}
	logger.Debug("oauth: start issued state %s, method %s", logger.Token(start.State), start.Method())

	// Authorize and Callback
	result, err := pending.Await(ctx, a.urls.AuthCodeURL(*start))
	if err != nil {
		if errors.Is(err, domain.ErrUserDeclined) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUserDeclined, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrOAuthFailed, err)
	}

	// Verify
	if perr := result.ProviderError(); perr != nil {
		logger.Warn("oauth: provider returned %q (code %q)", result.Error, result.ErrorCode)
		return nil, perr
	}
	if subtle.ConstantTimeCompare([]byte(result.State), []byte(start.State)) != 1 {
		return nil, fmt.Errorf("%w: state mismatch", domain.ErrProtocolViolation)
	}
	if result.JWTToken == "" || result.UserID == "" {
		return nil, fmt.Errorf("%w: callback missing jwt_token or user_id", domain.ErrProtocolViolation)
	}

	// Commit
	session := a.newSession(ctx, result)
	if err := a.sessions.Adopt(ctx, session); err != nil {
		return nil, fmt.Errorf("committing session: %w", err)
	}
	logger.Info("oauth: signed in as %s", result.UserID)
	return a.sessions.Current(ctx)
}

// newSession builds the record to commit, keeping an existing session id.
func (a *AuthService) newSession(ctx context.Context, result *domain.CallbackResult) domain.Session {
	session := domain.Session{}
	if existing, err := a.sessions.Current(ctx); err == nil && existing != nil {
		session = *existing
	}
	if session.Identity.SessionID == "" {
		session.Identity.SessionID = NewSessionID()
	}

	session.Identity.UserID = result.UserID
	session.Credential = domain.Credential{
		AccessToken:  result.JWTToken,
		RefreshToken: result.RefreshToken,
		IssuedAt:     a.now(),
	}
	session.SessionActive = true
	return session
}

// NewSessionID returns a fresh local correlation id.
func NewSessionID() string {
	return "saai_session_" + uuid.NewString()
}

// classifyStartError keeps transport failures generic and marks malformed answers.
func classifyStartError(err error) error {
	switch {
	case errors.Is(err, domain.ErrProtocolViolation):
		return err
	case domain.IsTransient(err):
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	default:
		return fmt.Errorf("%w: start: %w", domain.ErrOAuthFailed, err)
	}
}
