package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// mockRelayService is a mock implementation of driving.RelayService.
type mockRelayService struct {
	reply   *domain.Reply
	err     error
	queries []string
}

func (m *mockRelayService) Send(_ context.Context, _ domain.RelayRequest) (*domain.Reply, error) {
	return m.reply, m.err
}

func (m *mockRelayService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	m.queries = append(m.queries, req.Query)
	return m.reply, m.err
}

func (m *mockRelayService) Task(_ context.Context, _ map[string]any) (*domain.Reply, error) {
	return m.reply, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	status       *domain.SessionStatus
	statusErr    error
	recoverErr   error
	recoverCalls int
}

func (m *mockSessionService) Profile() string            { return domain.DefaultProfile }
func (m *mockSessionService) State() domain.SessionState { return domain.StateIdle }

func (m *mockSessionService) Current(_ context.Context) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSessionService) Status(_ context.Context) (*domain.SessionStatus, error) {
	return m.status, m.statusErr
}

func (m *mockSessionService) Refresh(_ context.Context) (*domain.Session, error) {
	return nil, nil
}

func (m *mockSessionService) Recover(_ context.Context) (*domain.Session, error) {
	m.recoverCalls++
	if m.recoverErr != nil {
		return nil, m.recoverErr
	}
	return &domain.Session{}, nil
}

func (m *mockSessionService) Adopt(_ context.Context, _ domain.Session) error { return nil }

func (m *mockSessionService) Disconnect(_ context.Context) error { return nil }

func (m *mockSessionService) RecordHeartbeat(_ context.Context, _ domain.HeartbeatResult) error {
	return nil
}

// collect runs cmd and expands batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// find returns the first message of type T.
func find[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if t, ok := m.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
