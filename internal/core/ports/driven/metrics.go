package driven

import "github.com/custodia-labs/saai/internal/core/domain"

// Metrics records session and relay outcomes.
type Metrics interface {
	// GrantAttempted counts one recovery strategy call.
	GrantAttempted(kind domain.GrantKind, ok bool)

	// RelayAttempted counts one outbound call and its outcome label.
	RelayAttempted(endpoint domain.Endpoint, outcome string)

	// StateChanged records the current session state of a profile.
	StateChanged(profile string, state domain.SessionState)
}
