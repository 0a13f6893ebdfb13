// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SessionStore: whole-record session persistence per profile
//   - RenewalClient: the remote refresh, silent re-auth and extension endpoints
//   - BackendClient: PKCE start, business webhooks and heartbeat
//   - Authorizer: the interactive browser leg of the OAuth flow
//   - AuthURLBuilder: builds the identity-provider authorization URL
//   - ConfigStore: stored settings as dot-path keys
//   - SchedulerStore: task state and run history for the scheduler
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Metrics: counters for grants, relay attempts and state changes
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
