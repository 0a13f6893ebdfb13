package tui

import "errors"

// ErrMissingRelayService is returned when the relay service is not provided.
var ErrMissingRelayService = errors.New("tui: relay service is required")

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("tui: session service is required")
