package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// errNoRefreshToken is the cause recorded when a stale pair cannot be renewed.
var errNoRefreshToken = errors.New("no refresh token held")

// sessionDeps are the collaborators shared by every session of a directory.
type sessionDeps struct {
	registry  driving.ProviderRegistry
	listener  driven.RedirectListener
	exchanger driven.TokenExchanger
	store     driven.TokenStore
	browser   driven.BrowserOpener
	identity  driven.IdentityResolver

	// portLock guards the redirect port across all providers.
	portLock *semaphore.Weighted
	// flights coalesces concurrent refreshes, keyed by provider.
	flights *singleflight.Group

	skew   time.Duration
	now    func() time.Time
	notify func(domain.SessionStatus)
}

// Session is the connection state machine for one provider.
//
// Two counters order concurrent operations. attempt identifies the current
// connect; Disconnect bumps it so a cancelled connect cannot write back.
// epoch identifies the current token entry; anything that replaces or
// clears the entry outside a refresh bumps it so a refresh that started
// against an older entry cannot resurrect it.
type Session struct {
	id   domain.ProviderID
	deps *sessionDeps

	// connectLock serializes connects for this provider.
	connectLock *semaphore.Weighted
	limiter     *rate.Limiter

	mu                sync.Mutex
	state             domain.SessionState
	account           string
	lastErr           error
	updatedAt         time.Time
	unauthorizedToken string
	attempt           uint64
	epoch             uint64
	cancelAttempt     context.CancelFunc
}

func newSession(id domain.ProviderID, deps *sessionDeps, refreshInterval time.Duration) *Session {
	limit := rate.Inf
	if refreshInterval > 0 {
		limit = rate.Every(refreshInterval)
	}
	return &Session{
		id:          id,
		deps:        deps,
		connectLock: semaphore.NewWeighted(1),
		limiter:     rate.NewLimiter(limit, 1),
		state:       domain.StateDisconnected,
		updatedAt:   deps.now(),
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() domain.SessionStatus {
	st := domain.SessionStatus{
		Provider:  s.id,
		State:     s.state,
		Account:   s.account,
		UpdatedAt: s.updatedAt,
	}
	if pair, ok := s.deps.store.Get(s.id); ok {
		st.Expiry = pair.Expiry
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
		if kind, ok := domain.AuthErrorKindOf(s.lastErr); ok {
			st.ErrorKind = kind
		}
	}
	return st
}

// mutate runs fn under the session lock. When fn reports a change the
// session's timestamp is updated and observers are notified.
func (s *Session) mutate(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.updatedAt = s.deps.now()
	st := s.statusLocked()
	s.mu.Unlock()

	s.deps.notify(st)
	return true
}

// settledState is the state a session rests in when nothing is in flight.
func (s *Session) settledState() domain.SessionState {
	if _, held := s.deps.store.Get(s.id); held {
		return domain.StateConnected
	}
	return domain.StateDisconnected
}

func (s *Session) persist(ctx context.Context) {
	if err := s.deps.store.Persist(ctx); err != nil {
		logger.Warn("persist tokens after %s change: %v", s.id, err)
	}
}

// Connect runs browser authorization, code exchange and identity lookup.
func (s *Session) Connect(ctx context.Context) error {
	provider, err := s.deps.registry.Get(s.id)
	if err != nil {
		return err
	}
	if !provider.IsConfigured() {
		prefix := s.id.EnvPrefix()
		return fmt.Errorf("%w: %s (set %s_CLIENT_ID and %s_CLIENT_SECRET)",
			domain.ErrProviderNotConfigured, s.id, prefix, prefix)
	}

	s.supersede()
	if err := s.connectLock.Acquire(ctx, 1); err != nil {
		s.settleIdle()
		return err
	}
	defer s.connectLock.Release(1)

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var n uint64
	var prev domain.SessionState
	s.mutate(func() bool {
		prev = s.state
		s.attempt++
		n = s.attempt
		s.cancelAttempt = cancel
		s.state = domain.StateAuthorizing
		s.lastErr = nil
		return true
	})
	defer s.clearAttempt(n)

	attempt, err := newAttempt(s.id, s.deps.listener.RedirectURI(), s.deps.now())
	if err != nil {
		return s.connectFailed(n, prev, fmt.Errorf("create authorization attempt: %w", err))
	}
	logger.Debug("connect %s: attempt %s", s.id, attempt.ID)

	pair, err := s.authorize(attemptCtx, n, provider, attempt)
	if err != nil {
		return s.connectFailed(n, prev, err)
	}

	var epoch uint64
	committed := s.mutate(func() bool {
		if s.attempt != n {
			return false
		}
		s.epoch++
		epoch = s.epoch
		s.deps.store.Put(s.id, pair)
		s.state = domain.StateConnected
		s.account = ""
		s.lastErr = nil
		s.unauthorizedToken = ""
		return true
	})
	if !committed {
		return domain.ErrAttemptCancelled
	}
	s.persist(ctx)
	logger.Info("connected %s", s.id)

	s.resolveIdentity(ctx, epoch, pair.AccessToken)
	return nil
}

// authorize holds the redirect port for one listen and its exchange.
func (s *Session) authorize(
	ctx context.Context,
	n uint64,
	provider *domain.Provider,
	attempt *domain.AuthorizationAttempt,
) (domain.TokenPair, error) {
	if err := s.deps.portLock.Acquire(ctx, 1); err != nil {
		return domain.TokenPair{}, domain.NewAuthError(domain.AuthErrorTimeout, s.id, err)
	}
	defer s.deps.portLock.Release(1)

	authURL := BuildAuthURL(provider, attempt.RedirectURI, attempt.State)
	code, err := s.deps.listener.ListenOnce(ctx, attempt.State, func() {
		if err := s.deps.browser.Open(authURL); err != nil {
			logger.Warn("could not open browser, visit this URL to authorize %s: %s", provider.Name, authURL)
		}
	})
	if err != nil {
		var ae *domain.AuthError
		if errors.As(err, &ae) && ae.Provider == "" {
			ae.Provider = s.id
		}
		return domain.TokenPair{}, err
	}

	moved := s.mutate(func() bool {
		if s.attempt != n {
			return false
		}
		s.state = domain.StateExchanging
		return true
	})
	if !moved {
		return domain.TokenPair{}, domain.ErrAttemptCancelled
	}

	return s.deps.exchanger.ExchangeCode(ctx, provider, code)
}

// connectFailed applies the recovery rule for err and returns it.
func (s *Session) connectFailed(n uint64, prev domain.SessionState, err error) error {
	if errors.Is(err, domain.ErrAttemptCancelled) {
		return err
	}
	kind, _ := domain.AuthErrorKindOf(err)

	cleared := false
	applied := s.mutate(func() bool {
		if s.attempt != n {
			return false
		}
		s.lastErr = err
		switch kind {
		case domain.AuthErrorRejected, domain.AuthErrorMalformedResponse:
			if _, held := s.deps.store.Get(s.id); held {
				s.deps.store.Clear(s.id)
				cleared = true
			}
			s.epoch++
			s.state = domain.StateFailed
			s.account = ""
			s.unauthorizedToken = ""
		case domain.AuthErrorTimeout, domain.AuthErrorProviderDenied, domain.AuthErrorMalformed:
			s.state = s.settledState()
		default:
			// Transport and unclassified failures leave the session as it was.
			s.state = s.settledState()
			if prev == domain.StateFailed && s.state == domain.StateDisconnected {
				s.state = domain.StateFailed
			}
		}
		return true
	})
	if !applied {
		return domain.ErrAttemptCancelled
	}
	if cleared {
		s.persist(context.Background())
	}
	logger.Debug("connect %s failed: %v", s.id, err)
	return err
}

// supersede cancels the connect in flight, if any, so that a new connect
// can take over as soon as the old one releases the redirect port.
func (s *Session) supersede() {
	s.mu.Lock()
	cancel := s.cancelAttempt
	if cancel != nil {
		s.cancelAttempt = nil
		s.attempt++
	}
	s.mu.Unlock()
	if cancel != nil {
		logger.Debug("connect %s: restarting authorization", s.id)
		cancel()
	}
}

// settleIdle returns a session left in flight by a superseded connect to
// its settled state when nothing took over.
func (s *Session) settleIdle() {
	s.mutate(func() bool {
		if s.cancelAttempt != nil || !s.state.InFlight() || s.state == domain.StateRefreshing {
			return false
		}
		s.state = s.settledState()
		return true
	})
}

func (s *Session) clearAttempt(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == n {
		s.cancelAttempt = nil
	}
}

func (s *Session) resolveIdentity(ctx context.Context, epoch uint64, accessToken string) {
	if s.deps.identity == nil {
		return
	}
	account, err := s.deps.identity.Resolve(ctx, s.id, accessToken)
	if err != nil {
		logger.Debug("resolve %s account: %v", s.id, err)
		return
	}
	s.mutate(func() bool {
		if s.epoch != epoch {
			return false
		}
		s.account = account
		return true
	})
}

// Disconnect discards the token entry and cancels an in-flight connect.
// Returns false when the session was already disconnected and idle.
func (s *Session) Disconnect() bool {
	var cancel context.CancelFunc
	changed := s.mutate(func() bool {
		_, held := s.deps.store.Get(s.id)
		if s.state == domain.StateDisconnected && s.cancelAttempt == nil && !held {
			return false
		}
		cancel = s.cancelAttempt
		s.cancelAttempt = nil
		s.attempt++
		s.epoch++
		s.deps.store.Clear(s.id)
		s.state = domain.StateDisconnected
		s.account = ""
		s.lastErr = nil
		s.unauthorizedToken = ""
		return true
	})
	if cancel != nil {
		cancel()
	}
	return changed
}

// MarkUnauthorized records that the provider answered 401 for accessToken.
func (s *Session) MarkUnauthorized(accessToken string) {
	if accessToken == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pair, ok := s.deps.store.Get(s.id); ok && pair.AccessToken == accessToken {
		s.unauthorizedToken = accessToken
		logger.Debug("%s access token rejected by provider, will refresh", s.id)
	}
}

// Reconcile aligns an idle session with the store after tokens were
// loaded from durable storage.
func (s *Session) Reconcile() {
	s.mutate(func() bool {
		if s.state.InFlight() {
			return false
		}
		_, held := s.deps.store.Get(s.id)
		switch {
		case held && s.state != domain.StateConnected:
			s.epoch++
			s.state = domain.StateConnected
			s.lastErr = nil
			return true
		case !held && s.state == domain.StateConnected:
			s.epoch++
			s.state = domain.StateDisconnected
			s.account = ""
			s.unauthorizedToken = ""
			return true
		}
		return false
	})
}

func (s *Session) isStale(pair domain.TokenPair) bool {
	if pair.IsExpired(s.deps.now(), s.deps.skew) {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unauthorizedToken != "" && s.unauthorizedToken == pair.AccessToken
}

// CurrentToken returns a usable access token, refreshing a stale one first.
func (s *Session) CurrentToken(ctx context.Context) (string, error) {
	pair, ok := s.deps.store.Get(s.id)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrAuthRequired, s.id)
	}
	if !s.isStale(pair) {
		return pair.AccessToken, nil
	}

	// The flight outlives any single waiter so that one caller giving up
	// does not fail the refresh for the others.
	ch := s.deps.flights.DoChan(string(s.id), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		token, _ := res.Val.(string)
		return token, nil
	}
}

// refresh renews the held pair if it is still stale. Runs inside a flight.
func (s *Session) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	pair, ok := s.deps.store.Get(s.id)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrAuthRequired, s.id)
	}
	// An earlier flight may already have replaced the pair.
	if !s.isStale(pair) {
		return pair.AccessToken, nil
	}

	if !pair.HasRefreshToken() {
		err := domain.NewAuthError(domain.AuthErrorRefreshRevoked, s.id, errNoRefreshToken)
		s.revoke(epoch, err)
		return "", err
	}

	provider, err := s.deps.registry.Get(s.id)
	if err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("refresh %s: %w", s.id, err)
	}

	s.mutate(func() bool {
		if s.epoch != epoch || s.state != domain.StateConnected {
			return false
		}
		s.state = domain.StateRefreshing
		return true
	})

	logger.Debug("refreshing %s access token", s.id)
	fresh, err := s.deps.exchanger.Refresh(ctx, provider, pair.RefreshToken)
	if err != nil {
		logger.Debug("refresh %s failed, retrying once: %v", s.id, err)
		fresh, err = s.deps.exchanger.Refresh(ctx, provider, pair.RefreshToken)
	}
	if err != nil {
		if domain.IsAuthErrorKind(err, domain.AuthErrorTransport) {
			s.mutate(func() bool {
				if s.state == domain.StateRefreshing {
					s.state = s.settledState()
				}
				s.lastErr = err
				return true
			})
			return "", err
		}
		revoked := domain.NewAuthError(domain.AuthErrorRefreshRevoked, s.id, err)
		s.revoke(epoch, revoked)
		return "", revoked
	}

	fresh = fresh.WithFallbackRefresh(pair)
	committed := s.mutate(func() bool {
		if s.epoch != epoch {
			return false
		}
		s.deps.store.Put(s.id, fresh)
		s.unauthorizedToken = ""
		s.lastErr = nil
		if s.state == domain.StateRefreshing {
			s.state = domain.StateConnected
		}
		return true
	})
	if !committed {
		// The entry was replaced or cleared while the refresh ran.
		if cur, ok := s.deps.store.Get(s.id); ok && !s.isStale(cur) {
			return cur.AccessToken, nil
		}
		return "", fmt.Errorf("%w: %s", domain.ErrAuthRequired, s.id)
	}
	s.persist(ctx)
	return fresh.AccessToken, nil
}

// revoke clears the entry and fails the session after a refresh that can
// never succeed.
func (s *Session) revoke(epoch uint64, err error) {
	changed := s.mutate(func() bool {
		if s.epoch != epoch {
			return false
		}
		s.epoch++
		s.deps.store.Clear(s.id)
		s.state = domain.StateFailed
		s.account = ""
		s.lastErr = err
		s.unauthorizedToken = ""
		return true
	})
	if changed {
		logger.Warn("%s session expired, reconnect required: %v", s.id, err)
		s.persist(context.Background())
	}
}
