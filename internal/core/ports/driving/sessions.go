package driving

import (
	"context"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// SessionDirectory owns one connection session per provider and the shared
// redirect port. Feature workers call CurrentToken before each provider API
// call; the UI and CLI drive Connect and Disconnect.
type SessionDirectory interface {
	// Connect runs the full browser authorization for a provider and blocks
	// until the session is Connected or the attempt failed.
	// Only one provider may be authorizing at a time; later callers wait.
	Connect(ctx context.Context, provider domain.ProviderID) error

	// ConnectAsync runs Connect on its own goroutine. The channel receives
	// exactly one value and is then closed.
	ConnectAsync(ctx context.Context, provider domain.ProviderID) <-chan error

	// Disconnect discards the provider's tokens and cancels any attempt in
	// flight for it. Disconnecting an idle session is a no-op.
	Disconnect(ctx context.Context, provider domain.ProviderID) error

	// DisconnectAll discards every provider's tokens.
	DisconnectAll(ctx context.Context) error

	// CurrentToken returns a usable access token, refreshing it first when
	// it is stale. Returns domain.ErrAuthRequired when nothing is held.
	CurrentToken(ctx context.Context, provider domain.ProviderID) (string, error)

	// ReportUnauthorized marks accessToken as stale after the provider
	// answered 401. Reports for an already replaced token are ignored.
	ReportUnauthorized(provider domain.ProviderID, accessToken string)

	// IsConnected returns true if a token is held for the provider.
	IsConnected(provider domain.ProviderID) bool

	// Status returns the provider's session snapshot.
	Status(provider domain.ProviderID) (domain.SessionStatus, error)

	// Statuses returns a snapshot for every known provider.
	Statuses() []domain.SessionStatus

	// Reload re-reads persisted tokens and reconciles session states.
	Reload(ctx context.Context) error

	// Subscribe registers fn to receive every status change.
	// The returned function removes the subscription.
	Subscribe(fn func(domain.SessionStatus)) (unsubscribe func())

	// Close cancels in-flight attempts and persists tokens.
	Close(ctx context.Context) error
}
