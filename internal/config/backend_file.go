package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileBackend stores config as a TOML document. Dotted keys map onto
// tables, so "server.port" lives under [server] as port.
// This is the default for Linux and other non-macOS platforms.
type fileBackend struct {
	path string
	data map[string]any
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()
	return b
}

func (b *fileBackend) load() {
	if _, err := toml.DecodeFile(b.path, &b.data); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
		}
		b.data = make(map[string]any)
	}
}

func (b *fileBackend) save() error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(b.data); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(b.path, buf.Bytes(), 0o600)
}

// table walks to the table holding key's last segment, creating
// intermediate tables when create is set.
func (b *fileBackend) table(key string, create bool) (map[string]any, string) {
	parts := strings.Split(key, ".")
	t := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := t[p].(map[string]any)
		if !ok {
			if !create {
				return nil, ""
			}
			next = make(map[string]any)
			t[p] = next
		}
		t = next
	}
	return t, parts[len(parts)-1]
}

func (b *fileBackend) lookup(key string) (any, bool) {
	t, leaf := b.table(key, false)
	if t == nil {
		return nil, false
	}
	v, ok := t[leaf]
	return v, ok
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v), true, nil
	}
	return s, true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int64:
		if val < math.MinInt || val > math.MaxInt {
			return 0, true, fmt.Errorf("value %d for %s is out of range", val, key)
		}
		return int(val), true, nil
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	t, leaf := b.table(key, true)
	t[leaf] = val
	return b.save()
}

func (b *fileBackend) SetInt(key string, val int) error {
	t, leaf := b.table(key, true)
	t[leaf] = int64(val)
	return b.save()
}

func (b *fileBackend) SetBool(key string, val bool) error {
	t, leaf := b.table(key, true)
	t[leaf] = val
	return b.save()
}

func (b *fileBackend) Delete(key string) error {
	t, leaf := b.table(key, false)
	if t == nil {
		return nil
	}
	delete(t, leaf)
	return b.save()
}
