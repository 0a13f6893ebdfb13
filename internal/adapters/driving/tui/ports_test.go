package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPorts(t *testing.T) {
	relay := &mockRelayService{}
	sessions := &mockSessionService{}

	ports := NewPorts(relay, sessions)

	assert.Equal(t, relay, ports.Relay)
	assert.Equal(t, sessions, ports.Sessions)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{
			name:    "all ports set",
			ports:   &Ports{Relay: &mockRelayService{}, Sessions: &mockSessionService{}},
			wantErr: nil,
		},
		{
			name:    "missing relay",
			ports:   &Ports{Sessions: &mockSessionService{}},
			wantErr: ErrMissingRelayService,
		},
		{
			name:    "missing sessions",
			ports:   &Ports{Relay: &mockRelayService{}},
			wantErr: ErrMissingSessionService,
		},
		{
			name:    "empty",
			ports:   &Ports{},
			wantErr: ErrMissingRelayService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
