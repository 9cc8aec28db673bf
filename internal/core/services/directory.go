package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Ensure Directory implements the interface.
var _ driving.SessionDirectory = (*Directory)(nil)

// Errors returned when directory dependencies are missing.
var (
	ErrMissingRegistry  = errors.New("directory: provider registry is required")
	ErrMissingListener  = errors.New("directory: redirect listener is required")
	ErrMissingExchanger = errors.New("directory: token exchanger is required")
	ErrMissingStore     = errors.New("directory: token store is required")
	ErrMissingBrowser   = errors.New("directory: browser opener is required")
)

// DirectoryDeps aggregates the driven ports a Directory needs.
type DirectoryDeps struct {
	Registry  driving.ProviderRegistry
	Listener  driven.RedirectListener
	Exchanger driven.TokenExchanger
	Store     driven.TokenStore
	Browser   driven.BrowserOpener

	// Identity is optional. Without it sessions carry no account name.
	Identity driven.IdentityResolver
}

// Validate ensures all required ports are set.
func (d *DirectoryDeps) Validate() error {
	switch {
	case d.Registry == nil:
		return ErrMissingRegistry
	case d.Listener == nil:
		return ErrMissingListener
	case d.Exchanger == nil:
		return ErrMissingExchanger
	case d.Store == nil:
		return ErrMissingStore
	case d.Browser == nil:
		return ErrMissingBrowser
	}
	return nil
}

// DirectoryConfig tunes refresh behaviour.
type DirectoryConfig struct {
	// RefreshSkew treats tokens as stale this long before expiry.
	RefreshSkew time.Duration
	// RefreshInterval is the minimum gap between refreshes of one provider.
	// Zero disables throttling.
	RefreshInterval time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// DirectoryConfigFromSettings derives a DirectoryConfig from settings.
func DirectoryConfigFromSettings(s *domain.Settings) DirectoryConfig {
	return DirectoryConfig{
		RefreshSkew:     s.Refresh.Skew,
		RefreshInterval: s.Refresh.MinInterval,
	}
}

// Directory owns one Session per provider and the shared redirect port.
type Directory struct {
	deps     *sessionDeps
	sessions map[domain.ProviderID]*Session
	order    []domain.ProviderID

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu           sync.RWMutex
	closed       bool
	observers    map[int]func(domain.SessionStatus)
	nextObserver int
}

// NewDirectory creates a Directory with a session for every provider the
// registry knows. Call Reload to restore persisted tokens.
func NewDirectory(deps DirectoryDeps, cfg DirectoryConfig) (*Directory, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &Directory{
		sessions:  make(map[domain.ProviderID]*Session),
		observers: make(map[int]func(domain.SessionStatus)),
	}
	d.baseCtx, d.baseCancel = context.WithCancel(context.Background())
	d.deps = &sessionDeps{
		registry:  deps.Registry,
		listener:  deps.Listener,
		exchanger: deps.Exchanger,
		store:     deps.Store,
		browser:   deps.Browser,
		identity:  deps.Identity,
		portLock:  semaphore.NewWeighted(1),
		flights:   &singleflight.Group{},
		skew:      cfg.RefreshSkew,
		now:       now,
		notify:    d.notify,
	}

	for _, id := range deps.Registry.IDs() {
		d.sessions[id] = newSession(id, d.deps, cfg.RefreshInterval)
		d.order = append(d.order, id)
	}
	return d, nil
}

func (d *Directory) session(id domain.ProviderID) (*Session, error) {
	s, ok := d.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	return s, nil
}

func (d *Directory) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// bind derives a context that is also cancelled when the directory closes.
func (d *Directory) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(d.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Connect runs the browser authorization flow for a provider.
func (d *Directory) Connect(ctx context.Context, provider domain.ProviderID) error {
	if d.isClosed() {
		return domain.ErrDirectoryClosed
	}
	s, err := d.session(provider)
	if err != nil {
		return err
	}

	ctx, cancel := d.bind(ctx)
	defer cancel()
	return s.Connect(ctx)
}

// ConnectAsync runs Connect on its own goroutine. Close waits for it.
func (d *Directory) ConnectAsync(ctx context.Context, provider domain.ProviderID) <-chan error {
	done := make(chan error, 1)
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		done <- domain.ErrDirectoryClosed
		close(done)
		return done
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()
		defer close(done)
		done <- d.Connect(ctx, provider)
	}()
	return done
}

// Disconnect discards the provider's tokens and cancels any in-flight
// attempt. Disconnecting an idle provider is a no-op.
func (d *Directory) Disconnect(ctx context.Context, provider domain.ProviderID) error {
	s, err := d.session(provider)
	if err != nil {
		return err
	}
	if !s.Disconnect() {
		return nil
	}
	logger.Info("disconnected %s", provider)
	if err := d.deps.store.Persist(ctx); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

// DisconnectAll discards every provider's tokens.
func (d *Directory) DisconnectAll(ctx context.Context) error {
	for _, id := range d.order {
		d.sessions[id].Disconnect()
	}
	d.deps.store.ClearAll()
	if err := d.deps.store.Persist(ctx); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	logger.Info("cleared tokens for all providers")
	return nil
}

// CurrentToken returns a usable access token for the provider.
func (d *Directory) CurrentToken(ctx context.Context, provider domain.ProviderID) (string, error) {
	if d.isClosed() {
		return "", domain.ErrDirectoryClosed
	}
	s, err := d.session(provider)
	if err != nil {
		return "", err
	}
	return s.CurrentToken(ctx)
}

// ReportUnauthorized marks accessToken stale after a 401 from the provider.
func (d *Directory) ReportUnauthorized(provider domain.ProviderID, accessToken string) {
	if s, err := d.session(provider); err == nil {
		s.MarkUnauthorized(accessToken)
	}
}

// IsConnected returns true if a token is held for the provider.
func (d *Directory) IsConnected(provider domain.ProviderID) bool {
	_, ok := d.deps.store.Get(provider)
	return ok
}

// Status returns the provider's session snapshot.
func (d *Directory) Status(provider domain.ProviderID) (domain.SessionStatus, error) {
	s, err := d.session(provider)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return s.Status(), nil
}

// Statuses returns a snapshot for every provider in display order.
func (d *Directory) Statuses() []domain.SessionStatus {
	out := make([]domain.SessionStatus, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.sessions[id].Status())
	}
	return out
}

// Reload re-reads persisted tokens and reconciles idle sessions.
func (d *Directory) Reload(ctx context.Context) error {
	if err := d.deps.store.Load(ctx); err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	for _, id := range d.order {
		d.sessions[id].Reconcile()
	}
	return nil
}

// WatchTokens reloads whenever watcher reports an external change.
// Blocks until ctx is cancelled or the directory closes.
func (d *Directory) WatchTokens(ctx context.Context, watcher driven.TokenWatcher) error {
	ctx, cancel := d.bind(ctx)
	defer cancel()
	return watcher.Watch(ctx, func() {
		logger.Debug("token storage changed, reloading")
		if err := d.Reload(ctx); err != nil {
			logger.Warn("reload tokens: %v", err)
		}
	})
}

// Subscribe registers fn to receive status changes. fn is called from the
// goroutine that made the change and must not block.
func (d *Directory) Subscribe(fn func(domain.SessionStatus)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObserver
	d.nextObserver++
	d.observers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

func (d *Directory) notify(st domain.SessionStatus) {
	d.mu.RLock()
	fns := make([]func(domain.SessionStatus), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}

// Close cancels in-flight attempts, waits for async connects and persists
// tokens.
func (d *Directory) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.baseCancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.deps.store.Persist(ctx); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}
