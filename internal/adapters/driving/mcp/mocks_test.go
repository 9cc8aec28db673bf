package mcp

import (
	"context"
	"sync"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// mockSessionDirectory is a mock implementation of driving.SessionDirectory.
type mockSessionDirectory struct {
	mu            sync.Mutex
	statuses      map[domain.ProviderID]domain.SessionStatus
	connectErr    error
	disconnectErr error
	connected     []domain.ProviderID
	disconnected  []domain.ProviderID
	asyncCtxErr   error
	observer      func(domain.SessionStatus)
	observers     int
}

func newMockSessionDirectory() *mockSessionDirectory {
	m := &mockSessionDirectory{statuses: make(map[domain.ProviderID]domain.SessionStatus)}
	for _, id := range domain.KnownProviders {
		m.statuses[id] = domain.SessionStatus{Provider: id, State: domain.StateDisconnected}
	}
	return m
}

func (m *mockSessionDirectory) set(st domain.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[st.Provider] = st
}

func (m *mockSessionDirectory) Connect(_ context.Context, provider domain.ProviderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = append(m.connected, provider)
	if m.connectErr != nil {
		return m.connectErr
	}
	m.statuses[provider] = domain.SessionStatus{Provider: provider, State: domain.StateConnected, Account: "user@example.com"}
	return nil
}

func (m *mockSessionDirectory) ConnectAsync(ctx context.Context, provider domain.ProviderID) <-chan error {
	m.mu.Lock()
	m.asyncCtxErr = ctx.Err()
	m.connected = append(m.connected, provider)
	m.statuses[provider] = domain.SessionStatus{Provider: provider, State: domain.StateAuthorizing}
	m.mu.Unlock()

	done := make(chan error, 1)
	done <- nil
	close(done)
	return done
}

func (m *mockSessionDirectory) Disconnect(_ context.Context, provider domain.ProviderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = append(m.disconnected, provider)
	if m.disconnectErr != nil {
		return m.disconnectErr
	}
	m.statuses[provider] = domain.SessionStatus{Provider: provider, State: domain.StateDisconnected}
	return nil
}

func (m *mockSessionDirectory) DisconnectAll(ctx context.Context) error {
	for _, id := range domain.KnownProviders {
		if err := m.Disconnect(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSessionDirectory) CurrentToken(_ context.Context, _ domain.ProviderID) (string, error) {
	return "", domain.ErrAuthRequired
}

func (m *mockSessionDirectory) ReportUnauthorized(_ domain.ProviderID, _ string) {}

func (m *mockSessionDirectory) IsConnected(provider domain.ProviderID) bool {
	st, _ := m.Status(provider)
	return st.IsConnected()
}

func (m *mockSessionDirectory) Status(provider domain.ProviderID) (domain.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[provider]
	if !ok {
		return domain.SessionStatus{}, domain.ErrUnknownProvider
	}
	return st, nil
}

func (m *mockSessionDirectory) Statuses() []domain.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SessionStatus, 0, len(domain.KnownProviders))
	for _, id := range domain.KnownProviders {
		out = append(out, m.statuses[id])
	}
	return out
}

func (m *mockSessionDirectory) Reload(_ context.Context) error { return nil }

func (m *mockSessionDirectory) Subscribe(fn func(domain.SessionStatus)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers++
	m.observer = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers--
		m.observer = nil
	}
}

func (m *mockSessionDirectory) observerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observers
}

// emit records st and reports it to the current observer.
func (m *mockSessionDirectory) emit(st domain.SessionStatus) {
	m.mu.Lock()
	m.statuses[st.Provider] = st
	fn := m.observer
	m.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func (m *mockSessionDirectory) Close(_ context.Context) error { return nil }

// mockProviderRegistry is a mock implementation of driving.ProviderRegistry.
type mockProviderRegistry struct {
	configured map[domain.ProviderID]bool
}

func (m *mockProviderRegistry) IDs() []domain.ProviderID { return domain.KnownProviders }

func (m *mockProviderRegistry) Get(id domain.ProviderID) (*domain.Provider, error) {
	names := map[domain.ProviderID]string{
		domain.ProviderGoogle:  "Google",
		domain.ProviderDiscord: "Discord",
		domain.ProviderGitHub:  "GitHub",
	}
	name, ok := names[id]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	p := &domain.Provider{ID: id, Name: name}
	if m.configured[id] {
		p.ClientID = "client"
		p.ClientSecret = "secret"
	}
	return p, nil
}

func (m *mockProviderRegistry) List() []*domain.Provider {
	out := make([]*domain.Provider, 0, len(domain.KnownProviders))
	for _, id := range domain.KnownProviders {
		p, _ := m.Get(id)
		out = append(out, p)
	}
	return out
}

func (m *mockProviderRegistry) IsConfigured(id domain.ProviderID) bool {
	return m.configured[id]
}
