package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Ensure TokenStore implements the interface.
var _ driven.TokenStore = (*TokenStore)(nil)

// TokenStore keeps token pairs in memory and writes them through a
// TokenPersister on Persist.
type TokenStore struct {
	mu        sync.RWMutex
	tokens    map[domain.ProviderID]domain.TokenPair
	persister driven.TokenPersister

	// persistMu orders concurrent Persist calls so an older snapshot never
	// overwrites a newer one.
	persistMu sync.Mutex
}

// NewTokenStore creates a token store. persister may be nil, in which case
// Persist and Load only affect memory.
func NewTokenStore(persister driven.TokenPersister) *TokenStore {
	return &TokenStore{
		tokens:    make(map[domain.ProviderID]domain.TokenPair),
		persister: persister,
	}
}

// Get returns a copy of the provider's pair.
func (s *TokenStore) Get(provider domain.ProviderID) (domain.TokenPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.tokens[provider]
	return pair, ok
}

// Put replaces the provider's pair. Pairs without an access token are
// treated as a Clear.
func (s *TokenStore) Put(provider domain.ProviderID, pair domain.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pair.IsZero() {
		delete(s.tokens, provider)
		return
	}
	s.tokens[provider] = pair
}

// Clear removes the provider's pair.
func (s *TokenStore) Clear(provider domain.ProviderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, provider)
}

// ClearAll removes every pair.
func (s *TokenStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[domain.ProviderID]domain.TokenPair)
}

// Snapshot returns a copy of all pairs.
func (s *TokenStore) Snapshot() map[domain.ProviderID]domain.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ProviderID]domain.TokenPair, len(s.tokens))
	for k, v := range s.tokens {
		out[k] = v
	}
	return out
}

// Persist writes the full mapping through the persister.
func (s *TokenStore) Persist(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.persister.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("save tokens to %s: %w", s.persister.Location(), err)
	}
	return nil
}

// Load replaces the mapping with what the persister holds. Unreadable
// storage is logged and results in an empty store.
func (s *TokenStore) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		logger.Warn("ignoring unreadable tokens at %s: %v", s.persister.Location(), err)
		loaded = nil
	}

	tokens := make(map[domain.ProviderID]domain.TokenPair, len(loaded))
	for id, pair := range loaded {
		if pair.IsZero() {
			continue
		}
		tokens[id] = pair
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	logger.Debug("loaded %d token(s) from %s", len(tokens), s.persister.Location())
	return nil
}
