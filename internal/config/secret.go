package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
	"github.com/adrg/xdg"
)

const keyringPrefix = "keyring:"

// openKeyring is swapped in tests.
var openKeyring = func() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: AppName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(xdg.ConfigHome, AppName, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt(AppName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// ResolveSecret returns the value behind a "keyring:<key>" reference.
// Any other value is returned unchanged.
func ResolveSecret(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, keyringPrefix)
	if !ok {
		return ref, nil
	}

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

// StoreSecret saves a credential in the keyring and returns its reference.
func StoreSecret(key, value string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return "", fmt.Errorf("setting credential %q: %w", key, err)
	}
	return keyringPrefix + key, nil
}
