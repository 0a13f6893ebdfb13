package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

// mockSessionStore implements driven.SessionStore for testing.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	saves    int
	saveErr  error
	getErr   error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionStore) Save(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.sessions[session.Profile] = session
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, profile string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[profile]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockSessionStore) Delete(_ context.Context, profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, profile)
	return nil
}

func (m *mockSessionStore) List(_ context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessionStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// mockRenewal implements driven.RenewalClient for testing.
// Strategies without a configured grant fail with ErrGrantRejected.
type mockRenewal struct {
	mu       sync.Mutex
	grants   map[domain.GrantKind]*domain.Grant
	errs     map[domain.GrantKind]error
	calls    []domain.GrantKind
	requests []domain.GrantRequest
	onGrant  func(kind domain.GrantKind)
}

func newMockRenewal() *mockRenewal {
	return &mockRenewal{
		grants: make(map[domain.GrantKind]*domain.Grant),
		errs:   make(map[domain.GrantKind]error),
	}
}

func (m *mockRenewal) Grant(_ context.Context, kind domain.GrantKind, req domain.GrantRequest) (*domain.Grant, error) {
	m.mu.Lock()
	m.calls = append(m.calls, kind)
	m.requests = append(m.requests, req)
	g, gerr := m.grants[kind], m.errs[kind]
	hook := m.onGrant
	m.mu.Unlock()

	if hook != nil {
		hook(kind)
	}
	if gerr != nil {
		return nil, gerr
	}
	if g == nil {
		return nil, &domain.WebhookError{Status: 401}
	}
	return g, nil
}

func (m *mockRenewal) callKinds() []domain.GrantKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GrantKind(nil), m.calls...)
}

// mockBackend implements driven.BackendClient for testing.
type mockBackend struct {
	mu sync.Mutex

	start    *domain.OAuthStart
	startErr error
	returnTo string

	responses []*domain.WebhookResponse
	postErr   error
	posts     []postCall

	heartbeat     *domain.HeartbeatResult
	heartbeatErr  error
	heartbeats    []domain.HeartbeatRequest
	heartbeatGate chan struct{}
}

type postCall struct {
	endpoint domain.Endpoint
	token    string
	payload  any
}

func (m *mockBackend) StartOAuth(_ context.Context, returnURL string) (*domain.OAuthStart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnTo = returnURL
	return m.start, m.startErr
}

// Post replays responses in order and repeats the last one.
func (m *mockBackend) Post(_ context.Context, endpoint domain.Endpoint, token string, payload any) (*domain.WebhookResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, postCall{endpoint: endpoint, token: token, payload: payload})
	if m.postErr != nil {
		return nil, m.postErr
	}
	if len(m.responses) == 0 {
		return &domain.WebhookResponse{Status: 200, Body: []byte(`{"message":"ok"}`)}, nil
	}
	i := len(m.posts) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

// Heartbeat blocks on heartbeatGate, when set, after recording the call.
func (m *mockBackend) Heartbeat(_ context.Context, _ string, req domain.HeartbeatRequest) (*domain.HeartbeatResult, error) {
	m.mu.Lock()
	m.heartbeats = append(m.heartbeats, req)
	gate := m.heartbeatGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heartbeatErr != nil {
		return nil, m.heartbeatErr
	}
	if m.heartbeat == nil {
		return &domain.HeartbeatResult{Active: true}, nil
	}
	return m.heartbeat, nil
}

func (m *mockBackend) postCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// mockAuthorizer implements driven.Authorizer and driven.AuthorizationSession.
type mockAuthorizer struct {
	beginErr error
	result   *domain.CallbackResult
	awaitErr error
	authURL  string
	closed   bool
}

func (m *mockAuthorizer) Begin(_ context.Context) (driven.AuthorizationSession, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m, nil
}

func (m *mockAuthorizer) ReturnURL() string {
	return "http://127.0.0.1:18080/callback"
}

func (m *mockAuthorizer) Await(_ context.Context, authURL string) (*domain.CallbackResult, error) {
	m.authURL = authURL
	return m.result, m.awaitErr
}

func (m *mockAuthorizer) Close() error {
	m.closed = true
	return nil
}

// mockURLBuilder implements driven.AuthURLBuilder for testing.
type mockURLBuilder struct{}

func (mockURLBuilder) AuthCodeURL(start domain.OAuthStart) string {
	return "https://idp.test/auth?state=" + start.State + "&code_challenge=" + start.CodeChallenge
}

// mockMetrics implements driven.Metrics for testing.
type mockMetrics struct {
	mu       sync.Mutex
	grants   map[string]int
	outcomes []string
	states   []domain.SessionState
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{grants: make(map[string]int)}
}

func (m *mockMetrics) GrantAttempted(kind domain.GrantKind, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[fmt.Sprintf("%s/%t", kind, ok)]++
}

func (m *mockMetrics) RelayAttempted(_ domain.Endpoint, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) StateChanged(_ string, state domain.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu      sync.RWMutex
	tasks   map[string]*domain.ScheduledTask
	runs    map[string][]domain.TaskResult
	saveErr error
	listErr error
	getErr  error
	kept    int
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks: make(map[string]*domain.ScheduledTask),
		runs:  make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) Task(_ context.Context, id string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[id]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) RecordRun(_ context.Context, run *domain.TaskResult, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run == nil {
		return domain.ErrInvalidInput
	}
	m.kept = keep
	m.runs[run.TaskID] = append([]domain.TaskResult{*run}, m.runs[run.TaskID]...)
	return nil
}

func (m *mockSchedulerStore) History(_ context.Context, id string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.runs[id]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Ensure mocks implement interfaces
var (
	_ driven.SessionStore   = (*mockSessionStore)(nil)
	_ driven.RenewalClient  = (*mockRenewal)(nil)
	_ driven.BackendClient  = (*mockBackend)(nil)
	_ driven.Authorizer     = (*mockAuthorizer)(nil)
	_ driven.AuthURLBuilder = mockURLBuilder{}
	_ driven.Metrics        = (*mockMetrics)(nil)
	_ driven.SchedulerStore = (*mockSchedulerStore)(nil)
)

// --- Helpers ---

// fixedNow is the clock used by every service test.
var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// tokenExpiringIn returns an HS256 token whose exp is fixedNow+d.
func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "user-1",
		"exp": fixedNow.Add(d).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// signedInSession stores an authenticated record for the default profile.
func signedInSession(t *testing.T, store *mockSessionStore, accessToken string) domain.Session {
	t.Helper()
	s := domain.Session{
		Profile: domain.DefaultProfile,
		Credential: domain.Credential{
			AccessToken:  accessToken,
			RefreshToken: "refresh-1",
			IssuedAt:     fixedNow.Add(-time.Hour),
			RefreshCount: 2,
		},
		Identity: domain.Identity{
			UserID:    "user-1",
			SessionID: "saai_session_fixed",
		},
		SessionActive: true,
	}
	store.sessions[s.Profile] = s
	return s
}

func newTestSessionManager(store *mockSessionStore, renewal *mockRenewal) *SessionManager {
	m := NewSessionManager(domain.DefaultProfile, store, renewal)
	m.now = func() time.Time { return fixedNow }
	return m
}
