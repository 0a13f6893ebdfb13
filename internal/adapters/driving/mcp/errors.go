// Package mcp provides an MCP (Model Context Protocol) server adapter for saai.
// It lets AI assistants ask the mail assistant questions and send task
// requests through the authenticated relay.
package mcp

import "errors"

// ErrMissingRelayService is returned when the relay service is not provided.
var ErrMissingRelayService = errors.New("mcp: relay service is required")

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("mcp: session service is required")
