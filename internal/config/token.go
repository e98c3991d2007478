package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	keychainService = "ipisp"
	tokenAccount    = "api_token"

	// TokenEnvVar overrides the stored API token when set.
	TokenEnvVar = "IPISP_API_TOKEN"
)

// Keychain stores secrets outside the plain config backend.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

// NewKeychain returns the platform secret store: the macOS Keychain on
// darwin, a 0600 JSON file under the XDG data directory elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token guarding the local HTTP API.
// A token is generated and persisted on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if v := os.Getenv(TokenEnvVar); v != "" {
		return v, nil
	}
	if v, err := kc.Get(keychainService, tokenAccount); err == nil && v != "" {
		return v, nil
	}

	token := uuid.NewString()
	if err := kc.Set(keychainService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return token, nil
}
