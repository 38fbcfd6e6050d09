package model

import (
	"fmt"
	"sync"

	apperrors "github.com/dkoval/ragchat/pkg/errors"
)

// Factory builds a chat model for a provider. Construction validates the
// provider's credentials, so activation fails loudly on missing config.
type Factory func() (ChatModel, error)

// Manager tracks the active chat provider. Models are built lazily on
// activation and swapped atomically.
type Manager struct {
	mu        sync.RWMutex
	factories map[Provider]Factory
	active    ChatModel
	provider  Provider
}

// NewManager constructs a Manager from per-provider factories.
func NewManager(factories map[Provider]Factory) *Manager {
	return &Manager{factories: factories}
}

// Activate validates and constructs the requested provider's model.
func (m *Manager) Activate(provider Provider) error {
	if !provider.Valid() {
		return apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown model provider %q", provider), nil)
	}
	factory, ok := m.factories[provider]
	if !ok {
		return apperrors.Wrap(apperrors.CodeProviderError, fmt.Sprintf("provider %q is not configured", provider), nil)
	}
	model, err := factory()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeProviderError, fmt.Sprintf("failed to initialize %q model", provider), err)
	}

	m.mu.Lock()
	m.active = model
	m.provider = provider
	m.mu.Unlock()
	return nil
}

// Active returns the current model, or an error when none is initialized.
func (m *Manager) Active() (ChatModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, apperrors.Wrap(apperrors.CodeNotReady, "no model initialized", nil)
	}
	return m.active, nil
}

// Provider reports the active provider, empty when none.
func (m *Manager) Provider() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider
}

// IsInitialized reports whether a model is ready to serve.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

// Info describes the active model for status displays.
func (m *Manager) Info() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return "no model selected"
	}
	return m.active.Info()
}

// Providers lists the providers that can be activated.
func (m *Manager) Providers() []Provider {
	out := make([]Provider, 0, len(m.factories))
	for _, p := range []Provider{ProviderAzure, ProviderHuggingFace} {
		if _, ok := m.factories[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears the active model.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.active = nil
	m.provider = ""
	m.mu.Unlock()
}
