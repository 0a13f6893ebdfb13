package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// SessionManager owns the credential of one profile and drives recovery.
//
// The store is the only copy of the credential. The mutex guards the
// state value and is never held across a network call, so concurrent
// callers may each run a recover chain; the last write to the store wins.
type SessionManager struct {
	profile string
	store   driven.SessionStore
	renewal driven.RenewalClient
	metrics driven.Metrics
	now     func() time.Time

	mu       sync.Mutex
	state    domain.SessionState
	inflight int
}

// NewSessionManager creates a session manager for profile.
func NewSessionManager(profile string, store driven.SessionStore, renewal driven.RenewalClient) *SessionManager {
	if profile == "" {
		profile = domain.DefaultProfile
	}
	return &SessionManager{
		profile: profile,
		store:   store,
		renewal: renewal,
		now:     time.Now,
		state:   domain.StateIdle,
	}
}

// SetMetrics attaches a metrics sink. Nil disables metrics.
func (m *SessionManager) SetMetrics(metrics driven.Metrics) {
	m.metrics = metrics
}

// Profile returns the managed profile name.
func (m *SessionManager) Profile() string {
	return m.profile
}

// State returns the current session state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the stored session record.
func (m *SessionManager) Current(ctx context.Context) (*domain.Session, error) {
	if m.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return m.store.Get(ctx, m.profile)
}

// Status returns a token-free summary of the session.
func (m *SessionManager) Status(ctx context.Context) (*domain.SessionStatus, error) {
	status := &domain.SessionStatus{
		Profile: m.profile,
		State:   m.State().String(),
	}

	sess, err := m.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	cred := sess.Credential
	status.SignedIn = sess.Authenticated()
	status.UserID = sess.Identity.UserID
	status.SessionID = sess.Identity.SessionID
	status.TokenUsable = IsUsable(cred.AccessToken, m.now())
	if exp, ok := TokenExpiry(cred.AccessToken); ok {
		status.TokenExpiresAt = exp
	}
	status.IssuedAt = cred.IssuedAt
	status.RefreshCount = cred.RefreshCount
	status.IsTemporaryExtension = cred.IsTemporaryExtension
	status.LastHeartbeat = sess.LastHeartbeat
	return status, nil
}

// Refresh runs the direct refresh strategy alone.
// On failure nothing is written and the state is left as it was.
func (m *SessionManager) Refresh(ctx context.Context) (*domain.Session, error) {
	prev := m.enter()

	current, err := m.loadAuthenticated(ctx)
	if err != nil {
		m.leave(settled(prev))
		return nil, err
	}

	next, err := m.grant(ctx, current, domain.GrantRefresh)
	if err != nil {
		m.leave(settled(prev))
		return nil, fmt.Errorf("refresh: %w", err)
	}

	m.leave(domain.StateIdle)
	return next, nil
}

// Recover tries direct refresh, silent re-authorization and session
// extension, strictly in that order, and stops at the first success.
// When all fail the stored credential is left untouched, the state moves
// to StateAwaitingInteractiveAuth and the error matches ErrReauthRequired.
func (m *SessionManager) Recover(ctx context.Context) (*domain.Session, error) {
	m.enter()
	logger.Section("Session Recovery")

	current, err := m.loadAuthenticated(ctx)
	if err != nil {
		m.leave(domain.StateAwaitingInteractiveAuth)
		return nil, fmt.Errorf("%w: %w", domain.ErrReauthRequired, err)
	}

	errs := make([]error, 0, len(domain.RecoveryOrder))
	for _, kind := range domain.RecoveryOrder {
		next, err := m.grant(ctx, current, kind)
		if err == nil {
			logger.Info("session %s: recovered via %s (refresh #%d)", m.profile, kind, next.Credential.RefreshCount)
			m.leave(domain.StateIdle)
			return next, nil
		}
		logger.Warn("session %s: %s failed: %v", m.profile, kind, err)
		errs = append(errs, fmt.Errorf("%s: %w", kind, err))

		if ctx.Err() != nil {
			break
		}
	}

	m.leave(domain.StateAwaitingInteractiveAuth)
	return nil, fmt.Errorf("%w: %w", domain.ErrReauthRequired, errors.Join(errs...))
}

// Adopt commits a freshly issued credential and identity.
func (m *SessionManager) Adopt(ctx context.Context, session domain.Session) error {
	if m.store == nil {
		return domain.ErrNotImplemented
	}
	if !session.Authenticated() {
		return domain.ErrInvalidInput
	}

	now := m.now()
	session.Profile = m.profile
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Credential.IssuedAt.IsZero() {
		session.Credential.IssuedAt = now
	}

	if err := m.store.Save(ctx, session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	m.mu.Lock()
	m.setState(domain.StateIdle)
	m.mu.Unlock()
	return nil
}

// Disconnect clears the credential and user id. The session id survives.
func (m *SessionManager) Disconnect(ctx context.Context) error {
	sess, err := m.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	next := sess.Clone()
	next.Credential = domain.Credential{}
	next.Identity.UserID = ""
	next.SessionActive = false
	next.UpdatedAt = m.now()

	if err := m.store.Save(ctx, *next); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	m.mu.Lock()
	m.setState(domain.StateIdle)
	m.mu.Unlock()
	logger.Info("session %s: disconnected", m.profile)
	return nil
}

// RecordHeartbeat stores the outcome of a heartbeat call.
func (m *SessionManager) RecordHeartbeat(ctx context.Context, result domain.HeartbeatResult) error {
	sess, err := m.Current(ctx)
	if err != nil {
		return err
	}

	next := sess.Clone()
	next.SessionActive = result.Active
	next.LastHeartbeat = m.now()
	next.UpdatedAt = next.LastHeartbeat
	if result.RefreshToken != "" {
		next.Credential.RefreshToken = result.RefreshToken
	}

	if err := m.store.Save(ctx, *next); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// loadAuthenticated reads the record and checks it can be presented for a grant.
func (m *SessionManager) loadAuthenticated(ctx context.Context) (*domain.Session, error) {
	sess, err := m.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAuthRequired
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !sess.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	return sess, nil
}

// grant runs one strategy and commits its result with a single store write.
func (m *SessionManager) grant(ctx context.Context, current *domain.Session, kind domain.GrantKind) (*domain.Session, error) {
	if m.renewal == nil {
		return nil, domain.ErrNotImplemented
	}

	req := domain.GrantRequest{
		UserID:       current.Identity.UserID,
		SessionID:    current.Identity.SessionID,
		RefreshToken: current.Credential.RefreshToken,
	}
	if kind == domain.GrantSessionExtension {
		req.AccessToken = current.Credential.AccessToken
	}

	logger.Debug("session %s: trying %s for user %s", m.profile, kind, current.Identity.UserID)
	g, err := m.renewal.Grant(ctx, kind, req)
	if err == nil && (g == nil || g.AccessToken == "") {
		err = domain.ErrMissingToken
	}
	if err != nil {
		m.observeGrant(kind, false)
		return nil, err
	}

	refreshToken := g.RefreshToken
	if refreshToken == "" {
		refreshToken = current.Credential.RefreshToken
	}

	now := m.now()
	next := current.Clone()
	next.Credential = domain.Credential{
		AccessToken:          g.AccessToken,
		RefreshToken:         refreshToken,
		IssuedAt:             now,
		RefreshCount:         current.Credential.RefreshCount + 1,
		IsTemporaryExtension: kind == domain.GrantSessionExtension,
	}
	next.UpdatedAt = now

	if err := m.store.Save(ctx, *next); err != nil {
		m.observeGrant(kind, false)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	m.observeGrant(kind, true)
	logger.Debug("session %s: %s issued %s", m.profile, kind, logger.Token(g.AccessToken))
	return next, nil
}

func (m *SessionManager) enter() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	m.inflight++
	m.setState(domain.StateRefreshing)
	return prev
}

// leave settles the state once the last in-flight chain finishes.
func (m *SessionManager) leave(next domain.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight > 0 {
		return
	}
	m.setState(next)
}

// setState must be called with mu held.
func (m *SessionManager) setState(s domain.SessionState) {
	if m.state == s {
		return
	}
	m.state = s
	if m.metrics != nil {
		m.metrics.StateChanged(m.profile, s)
	}
}

func (m *SessionManager) observeGrant(kind domain.GrantKind, ok bool) {
	if m.metrics != nil {
		m.metrics.GrantAttempted(kind, ok)
	}
}

// settled maps the state seen on entry back to a resting state.
func settled(prev domain.SessionState) domain.SessionState {
	if prev == domain.StateRefreshing {
		return domain.StateIdle
	}
	return prev
}
