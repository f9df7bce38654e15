package vcs_providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crev/diff_review"
	"crev/vcs_providers/contracts"
)

// ErrNoProvider is returned when no registered provider recognizes a URL.
var ErrNoProvider = errors.New("no provider can handle this URL")

// ErrSessionNotFound is returned when a review ID has no live session.
var ErrSessionNotFound = errors.New("unknown review session")

// IsNoProvider reports whether err means the URL matched no provider.
func IsNoProvider(err error) bool {
	return errors.Is(err, ErrNoProvider)
}

// Registry resolves merge request URLs to providers. First match wins, in
// registration order.
type Registry struct {
	providers []contracts.IMergeRequestProvider
}

func NewRegistry(providers ...contracts.IMergeRequestProvider) *Registry {
	return &Registry{providers: providers}
}

func (r *Registry) Register(p contracts.IMergeRequestProvider) {
	r.providers = append(r.providers, p)
}

func (r *Registry) Resolve(url string) (contracts.IMergeRequestProvider, error) {
	for _, p := range r.providers {
		if p.CanHandle(url) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProvider, url)
}

// SessionStore maps review IDs to the provider that loaded them, so follow-up
// calls route back without re-parsing a URL. Sessions live for the process
// lifetime.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]contracts.IMergeRequestProvider
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]contracts.IMergeRequestProvider{}}
}

func (s *SessionStore) Put(reviewID string, p contracts.IMergeRequestProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[reviewID] = p
}

func (s *SessionStore) Get(reviewID string) (contracts.IMergeRequestProvider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[reviewID]
	return p, ok
}

// Manager ties the registry and session store together behind the operations
// the rest of the system needs.
type Manager struct {
	registry *Registry
	sessions *SessionStore
}

func NewManager(registry *Registry) *Manager {
	return &Manager{registry: registry, sessions: NewSessionStore()}
}

// LoadMR resolves the URL to a provider, loads the merge request, and records
// the session.
func (m *Manager) LoadMR(ctx context.Context, url string) (*diff_review.PRInfo, error) {
	provider, err := m.registry.Resolve(url)
	if err != nil {
		return nil, err
	}
	info, err := provider.LoadMR(ctx, url)
	if err != nil {
		return nil, err
	}
	m.sessions.Put(info.ReviewID, provider)
	return info, nil
}

// GetMR returns the cached merge request for a review ID.
func (m *Manager) GetMR(reviewID string) (*diff_review.PRInfo, error) {
	provider, ok := m.sessions.Get(reviewID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, reviewID)
	}
	info, ok := provider.GetCachedMR(reviewID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, reviewID)
	}
	return info, nil
}

// GetFileContents fetches both sides of a changed file for a loaded review.
func (m *Manager) GetFileContents(ctx context.Context, reviewID string, path string, status string) (string, string, error) {
	provider, ok := m.sessions.Get(reviewID)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrSessionNotFound, reviewID)
	}
	return provider.GetFileContents(ctx, reviewID, path, status)
}
