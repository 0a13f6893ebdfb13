// Package domain defines the core business entities for saai.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Session: the persisted record for one profile
//   - Credential: the access/refresh token pair and its metadata
//   - Identity: the remote user id and the local session id
//   - Grant: a successful answer from a renewal endpoint
//   - Reply: a normalized answer from a business webhook
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
