package relay

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

type fakeRelay struct {
	reply *domain.Reply
	err   error

	chats []domain.ChatRequest
	sends []domain.RelayRequest
}

func (f *fakeRelay) Send(_ context.Context, req domain.RelayRequest) (*domain.Reply, error) {
	f.sends = append(f.sends, req)
	return f.reply, f.err
}

func (f *fakeRelay) Chat(_ context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	f.chats = append(f.chats, req)
	return f.reply, f.err
}

func (f *fakeRelay) Task(ctx context.Context, payload map[string]any) (*domain.Reply, error) {
	return f.Send(ctx, domain.RelayRequest{Endpoint: domain.EndpointTask, Payload: payload})
}

type fakeSessions struct {
	status       *domain.SessionStatus
	recoverErr   error
	recovers     int
	disconnected bool
}

func (f *fakeSessions) Profile() string            { return domain.DefaultProfile }
func (f *fakeSessions) State() domain.SessionState { return domain.StateIdle }

func (f *fakeSessions) Current(context.Context) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeSessions) Status(context.Context) (*domain.SessionStatus, error) {
	return f.status, nil
}

func (f *fakeSessions) Refresh(context.Context) (*domain.Session, error) {
	return nil, domain.ErrNotImplemented
}

func (f *fakeSessions) Recover(context.Context) (*domain.Session, error) {
	f.recovers++
	return &domain.Session{}, f.recoverErr
}

func (f *fakeSessions) Adopt(context.Context, domain.Session) error { return nil }

func (f *fakeSessions) Disconnect(context.Context) error {
	f.disconnected = true
	return nil
}

func (f *fakeSessions) RecordHeartbeat(context.Context, domain.HeartbeatResult) error { return nil }

type fakeAuth struct {
	err   error
	calls int
}

func (f *fakeAuth) Connect(context.Context) (*domain.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Session{}, nil
}
