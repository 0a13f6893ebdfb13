// Package tui provides an interactive terminal chat with the mail assistant.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/saai/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Relay sends questions to the assistant.
	Relay driving.RelayService

	// Sessions reports and recovers the session.
	Sessions driving.SessionService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(relay driving.RelayService, sessions driving.SessionService) *Ports {
	return &Ports{
		Relay:    relay,
		Sessions: sessions,
	}
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
