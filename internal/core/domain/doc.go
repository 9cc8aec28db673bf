// Package domain defines the core business entities for UnifiedHub.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Provider: A remote account provider and its OAuth client registration
//   - TokenPair: The access/refresh credentials held for one provider
//   - AuthorizationAttempt: One browser consent round-trip
//   - SessionState / SessionStatus: The per-provider connection state machine
//   - Settings: Redirect listener, HTTP and token storage configuration
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
