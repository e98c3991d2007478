//go:build !darwin

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// secrets is the on-disk layout: one table per service, one key per account.
type secrets map[string]map[string]string

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "ipisp", "secrets.toml")
}

func readSecrets(path string) (secrets, error) {
	s := make(secrets)
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func keychainGet(service, account string) ([]byte, error) {
	s, err := readSecrets(secretsFilePath())
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	val, ok := s[service][account]
	if !ok {
		return nil, fmt.Errorf("account %q not found in service %q", account, service)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	p := secretsFilePath()

	s, err := readSecrets(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading secrets file: %w", err)
		}
		s = make(secrets)
	}
	if s[service] == nil {
		s[service] = make(map[string]string)
	}
	s[service][account] = value

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}
	return os.WriteFile(p, buf.Bytes(), 0o600)
}
