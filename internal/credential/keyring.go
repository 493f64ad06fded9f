// Package credential stores and retrieves secrets in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "clubwatch"

// API token key names. The capitalized form is the historical one; both are
// checked on lookup so existing installs keep working.
const (
	tokenKey       = "Token"
	legacyTokenKey = "token"
)

// IMAPPasswordKey is the keyring entry holding the IMAP password used for
// saving official letter drafts.
const IMAPPasswordKey = "imap-password"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/clubwatch/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("clubwatch-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Source provides the association server API token. Absence of a token is
// not an error: it simply means the client is unauthenticated and every
// operation short-circuits until a token is stored.
type Source interface {
	Token() (token string, ok bool)
}

// KeyringSource reads the API token from the system keyring, trying the
// historical key names in order.
type KeyringSource struct{}

// Token returns the stored API token, or ok=false when no entry exists
// under either key name.
func (KeyringSource) Token() (string, bool) {
	for _, key := range []string{tokenKey, legacyTokenKey} {
		value, err := Get(key)
		if err == nil && value != "" {
			return value, true
		}
		if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			// Backend trouble (locked keychain, missing agent). Treat
			// the same as unauthenticated; the next lookup retries.
			return "", false
		}
	}
	return "", false
}

// SetToken stores the API token under the primary key name.
func SetToken(value string) error {
	return Set(tokenKey, value)
}

// StaticSource is a fixed-token Source for tests and one-off scripts.
type StaticSource string

// Token returns the static token; ok is false for the empty string.
func (s StaticSource) Token() (string, bool) {
	return string(s), s != ""
}
