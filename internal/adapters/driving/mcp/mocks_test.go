package mcp

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// mockRelayService is a mock implementation of driving.RelayService.
type mockRelayService struct {
	reply *domain.Reply
	err   error

	chats []domain.ChatRequest
	tasks []map[string]any
}

func (m *mockRelayService) Send(_ context.Context, _ domain.RelayRequest) (*domain.Reply, error) {
	return m.reply, m.err
}

func (m *mockRelayService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	m.chats = append(m.chats, req)
	return m.reply, m.err
}

func (m *mockRelayService) Task(_ context.Context, payload map[string]any) (*domain.Reply, error) {
	m.tasks = append(m.tasks, payload)
	return m.reply, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	status *domain.SessionStatus
	err    error
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
	return nil, m.err
}

func (m *mockSessionService) Adopt(_ context.Context, _ domain.Session) error {
	return m.err
}

func (m *mockSessionService) Disconnect(_ context.Context) error {
	return m.err
}

func (m *mockSessionService) RecordHeartbeat(_ context.Context, _ domain.HeartbeatResult) error {
	return m.err
}
