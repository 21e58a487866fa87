// Package credentials stores the daemon password and provider API keys
// in the host OS credential store (spec.md §6), keyed by the
// application ID plus a provider tag.
package credentials

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "euphonica-core"

// daemonPasswordTag is the reserved credential tag for the MPD password.
const daemonPasswordTag = "mpd-password"

// Store reads and writes secrets via the OS credential store (Keychain,
// Secret Service, Credential Manager, depending on platform).
type Store struct{}

// New returns a credential Store.
func New() *Store { return &Store{} }

// SetDaemonPassword persists the MPD password.
func (s *Store) SetDaemonPassword(password string) error {
	return s.set(daemonPasswordTag, password)
}

// DaemonPassword returns the stored MPD password, or "" if none is set.
func (s *Store) DaemonPassword() (string, error) {
	return s.get(daemonPasswordTag)
}

// SetProviderAPIKey persists the API key for a named provider.
func (s *Store) SetProviderAPIKey(providerKey, apiKey string) error {
	return s.set(tagFor(providerKey), apiKey)
}

// ProviderAPIKey returns the stored API key for a named provider, or ""
// if none is set.
func (s *Store) ProviderAPIKey(providerKey string) (string, error) {
	return s.get(tagFor(providerKey))
}

func tagFor(providerKey string) string {
	return "provider-api-key:" + providerKey
}

func (s *Store) set(tag, secret string) error {
	if err := keyring.Set(service, tag, secret); err != nil {
		return fmt.Errorf("credentials: set %q: %w", tag, err)
	}
	return nil
}

func (s *Store) get(tag string) (string, error) {
	secret, err := keyring.Get(service, tag)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("credentials: get %q: %w", tag, err)
	}
	return secret, nil
}
