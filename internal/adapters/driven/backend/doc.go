// Package backend implements the HTTP client for the remote automation service.
//
// One Client serves both driven.RenewalClient (the three recovery strategies)
// and driven.BackendClient (PKCE start, business webhooks and heartbeat).
// Calls are paced by a token bucket and pause when the service answers with
// Retry-After. Transport failures match domain.ErrNetwork or domain.ErrTimeout.
package backend
