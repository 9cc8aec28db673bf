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
//   - RedirectListener: Captures the authorization code on the loopback redirect
//   - TokenExchanger: Trades codes and refresh tokens at the token endpoint
//   - TokenStore: Holds the current token pair per provider
//   - TokenPersister: Durable storage behind the TokenStore (JSON file, SQLite)
//   - BrowserOpener: Opens the consent URL in the system browser
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IdentityResolver: Looks up the connected account. Without it, status shows no account.
//   - TokenWatcher: Reports external changes to persisted tokens. Without it, Reload is manual.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
