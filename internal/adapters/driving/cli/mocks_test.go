package cli

import (
	"context"
	"sync"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// mockSessionDirectory is a mock implementation of driving.SessionDirectory.
type mockSessionDirectory struct {
	mu            sync.Mutex
	statuses      map[domain.ProviderID]domain.SessionStatus
	observers     []func(domain.SessionStatus)
	connectErr    error
	disconnectErr error
	token         string
	tokenErr      error
	calls         []string
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

func (m *mockSessionDirectory) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSessionDirectory) emit(st domain.SessionStatus) {
	m.mu.Lock()
	m.statuses[st.Provider] = st
	observers := append([]func(domain.SessionStatus){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}

func (m *mockSessionDirectory) Connect(_ context.Context, provider domain.ProviderID) error {
	m.record("connect:" + string(provider))
	m.emit(domain.SessionStatus{Provider: provider, State: domain.StateAuthorizing})
	if m.connectErr != nil {
		kind, _ := domain.AuthErrorKindOf(m.connectErr)
		m.emit(domain.SessionStatus{Provider: provider, State: domain.StateDisconnected, ErrorKind: kind})
		return m.connectErr
	}
	m.emit(domain.SessionStatus{Provider: provider, State: domain.StateExchanging})
	m.emit(domain.SessionStatus{Provider: provider, State: domain.StateConnected, Account: "user@example.com"})
	return nil
}

func (m *mockSessionDirectory) ConnectAsync(ctx context.Context, provider domain.ProviderID) <-chan error {
	done := make(chan error, 1)
	done <- m.Connect(ctx, provider)
	close(done)
	return done
}

func (m *mockSessionDirectory) Disconnect(_ context.Context, provider domain.ProviderID) error {
	m.record("disconnect:" + string(provider))
	if m.disconnectErr != nil {
		return m.disconnectErr
	}
	m.set(domain.SessionStatus{Provider: provider, State: domain.StateDisconnected})
	return nil
}

func (m *mockSessionDirectory) DisconnectAll(ctx context.Context) error {
	m.record("disconnect-all")
	if m.disconnectErr != nil {
		return m.disconnectErr
	}
	for _, id := range domain.KnownProviders {
		m.set(domain.SessionStatus{Provider: id, State: domain.StateDisconnected})
	}
	return nil
}

func (m *mockSessionDirectory) CurrentToken(_ context.Context, provider domain.ProviderID) (string, error) {
	m.record("token:" + string(provider))
	return m.token, m.tokenErr
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
	m.observers = append(m.observers, fn)
	idx := len(m.observers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers[idx] = func(domain.SessionStatus) {}
	}
}

func (m *mockSessionDirectory) Close(_ context.Context) error { return nil }

// mockProviderRegistry is a mock implementation of driving.ProviderRegistry.
type mockProviderRegistry struct {
	configured map[domain.ProviderID]bool
}

func (m *mockProviderRegistry) IDs() []domain.ProviderID { return domain.KnownProviders }

func (m *mockProviderRegistry) Get(id domain.ProviderID) (*domain.Provider, error) {
	p := map[domain.ProviderID]domain.Provider{
		domain.ProviderGoogle:  {ID: domain.ProviderGoogle, Name: "Google", SupportsRefresh: true, SetupHint: "https://console.cloud.google.com/apis/credentials"},
		domain.ProviderDiscord: {ID: domain.ProviderDiscord, Name: "Discord", SupportsRefresh: true, SetupHint: "https://discord.com/developers/applications"},
		domain.ProviderGitHub:  {ID: domain.ProviderGitHub, Name: "GitHub", SetupHint: "https://github.com/settings/developers"},
	}
	provider, ok := p[id]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	if m.configured[id] {
		provider.ClientID = "client-id"
		provider.ClientSecret = "client-secret"
	}
	return &provider, nil
}

func (m *mockProviderRegistry) List() []*domain.Provider {
	out := make([]*domain.Provider, 0, len(domain.KnownProviders))
	for _, id := range domain.KnownProviders {
		p, _ := m.Get(id)
		out = append(out, p)
	}
	return out
}

func (m *mockProviderRegistry) IsConfigured(id domain.ProviderID) bool { return m.configured[id] }

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.Settings
	validateErr error
	setErr      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultSettings()}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) SetCredentials(provider domain.ProviderID, clientID, clientSecret string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.settings.Providers[provider] = domain.ProviderCredentials{ClientID: clientID, ClientSecret: clientSecret}
	return nil
}

func (m *mockSettingsService) SetTokenBackend(backend domain.TokenBackend) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.settings.Tokens.Backend = backend
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

// mockAccountLookup is a mock implementation of driving.AccountLookup.
type mockAccountLookup struct {
	account string
	err     error
}

func (m *mockAccountLookup) Lookup(_ context.Context, _ domain.ProviderID) (string, error) {
	return m.account, m.err
}
