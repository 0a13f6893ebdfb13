package mcp

import (
	"github.com/custodia-labs/saai/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Relay sends chat and task requests.
	Relay driving.RelayService

	// Sessions reports the signed-in state.
	Sessions driving.SessionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Relay == nil {
		return ErrMissingRelayService
	}
	if p.Sessions == nil {
		return ErrMissingSessionService
	}
	return nil
}
