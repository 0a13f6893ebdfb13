package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
)

// mockSessionService implements driving.SessionService for CLI tests.
type mockSessionService struct {
	status        *domain.SessionStatus
	err           error
	recoverErr    error
	disconnected  bool
	recoverCalled bool
}

func (m *mockSessionService) Profile() string            { return domain.DefaultProfile }
func (m *mockSessionService) State() domain.SessionState { return domain.StateIdle }

func (m *mockSessionService) Current(_ context.Context) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSessionService) Status(_ context.Context) (*domain.SessionStatus, error) {
	return m.status, m.err
}

func (m *mockSessionService) Refresh(_ context.Context) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) Recover(_ context.Context) (*domain.Session, error) {
	m.recoverCalled = true
	if m.recoverErr != nil {
		return nil, m.recoverErr
	}
	return &domain.Session{}, nil
}

func (m *mockSessionService) Adopt(_ context.Context, _ domain.Session) error { return m.err }

func (m *mockSessionService) Disconnect(_ context.Context) error {
	m.disconnected = true
	return m.err
}

func (m *mockSessionService) RecordHeartbeat(_ context.Context, _ domain.HeartbeatResult) error {
	return m.err
}

// mockRelayService implements driving.RelayService for CLI tests.
type mockRelayService struct {
	reply    *domain.Reply
	err      error
	chats    []domain.ChatRequest
	payloads []map[string]any
}

func (m *mockRelayService) Send(_ context.Context, _ domain.RelayRequest) (*domain.Reply, error) {
	return m.reply, m.err
}

func (m *mockRelayService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	m.chats = append(m.chats, req)
	return m.reply, m.err
}

func (m *mockRelayService) Task(_ context.Context, payload map[string]any) (*domain.Reply, error) {
	m.payloads = append(m.payloads, payload)
	return m.reply, m.err
}

// mockAuthService implements driving.AuthService for CLI tests.
type mockAuthService struct {
	session *domain.Session
	err     error
}

func (m *mockAuthService) Connect(_ context.Context) (*domain.Session, error) {
	return m.session, m.err
}

// mockSettingsService implements driving.SettingsService for CLI tests.
type mockSettingsService struct {
	settings  *domain.Settings
	values    []driving.SettingValue
	stored    map[string]string
	setErr    error
	getErr    error
	reloadErr error
	reloads   int
}

func newMockSettingsService() *mockSettingsService {
	settings := domain.DefaultSettings()
	return &mockSettingsService{
		settings: &settings,
		values: []driving.SettingValue{
			{Key: "backend.base_url", Value: domain.DefaultBaseURL, Source: driving.SourceDefault},
			{Key: "backend.timeout", Value: "45s", Source: driving.SourceFile},
		},
		stored: map[string]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) { return m.settings, m.getErr }

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.stored[key] = value
	return nil
}

func (m *mockSettingsService) Unset(key string) error {
	delete(m.stored, key)
	return nil
}

func (m *mockSettingsService) List() ([]driving.SettingValue, error) { return m.values, nil }

func (m *mockSettingsService) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for _, v := range m.values {
		keys = append(keys, v.Key)
	}
	return keys
}

func (m *mockSettingsService) Reload() error {
	m.reloads++
	return m.reloadErr
}

func (m *mockSettingsService) Path() string { return "/home/test/.saai/config.toml" }

// mockScheduler implements driving.Scheduler for CLI tests.
type mockScheduler struct {
	tasks   []domain.ScheduledTask
	history map[string][]domain.TaskResult
	err     error
}

func (m *mockScheduler) Start(_ context.Context) error { return nil }
func (m *mockScheduler) Stop() error                   { return nil }

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, m.err
}

func (m *mockScheduler) History(_ context.Context, id string, limit int) ([]domain.TaskResult, error) {
	runs := m.history[id]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// setupTestServices installs mocks and returns a cleanup that restores the
// previous services and resets command flags.
func setupTestServices() (*mockSessionService, *mockRelayService, *mockSettingsService, func()) {
	sessions := &mockSessionService{status: &domain.SessionStatus{
		Profile:     domain.DefaultProfile,
		State:       "idle",
		SignedIn:    true,
		UserID:      "user-1",
		SessionID:   "saai_session_1",
		TokenUsable: true,
		IssuedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	relay := &mockRelayService{reply: &domain.Reply{Text: "ok"}}
	settings := newMockSettingsService()

	prev := struct {
		sessions driving.SessionService
		relay    driving.RelayService
		auth     driving.AuthService
		settings driving.SettingsService
	}{sessionService, relayService, authService, settingsService}

	sessionService = sessions
	relayService = relay
	settingsService = settings

	return sessions, relay, settings, func() {
		sessionService = prev.sessions
		relayService = prev.relay
		authService = prev.auth
		settingsService = prev.settings
		authorizer = nil
		statusJSON, statusTasks = false, false
		scheduler = nil
		chatThread, chatSubject, chatJSON, taskJSON = "", "", false, false
		loginNoBrowser = false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// execute runs the root command with args and returns combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
