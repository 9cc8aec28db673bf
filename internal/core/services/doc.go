// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Directory owns one Session per provider. Sessions run the OAuth2
// authorization code flow through the shared redirect port and refresh
// tokens just in time when feature workers ask for them.
package services
