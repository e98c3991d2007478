//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.yapily.ipisp"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "ipisp")
	}
	return "ipisp-data"
}

// darwinBackend reads and writes UserDefaults through the defaults(1) tool.
// Dotted keys are stored verbatim.
type darwinBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain}
}

func (b *darwinBackend) defaults(verb, key string, args ...string) ([]byte, error) {
	argv := append([]string{verb, b.domain, key}, args...)
	return exec.Command("defaults", argv...).CombinedOutput()
}

func (b *darwinBackend) write(key, typ, val string) error {
	if out, err := b.defaults("write", key, typ, val); err != nil {
		return fmt.Errorf("writing default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *darwinBackend) GetString(key string) (string, bool, error) {
	out, err := b.defaults("read", key)
	s := strings.TrimSpace(string(out))
	if err != nil {
		// defaults exits 1 when the key does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default %s: %w, output: %s", key, err, s)
	}
	return s, true, nil
}

func (b *darwinBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *darwinBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *darwinBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

// SetBool stores a real boolean; defaults reads it back as 1 or 0, which
// strconv.ParseBool accepts.
func (b *darwinBackend) SetBool(key string, val bool) error {
	return b.write(key, "-bool", strconv.FormatBool(val))
}

func (b *darwinBackend) Delete(key string) error {
	if out, err := b.defaults("delete", key); err != nil {
		return fmt.Errorf("deleting default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}
