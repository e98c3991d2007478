package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockKeychain is a test double for the Keychain interface.
type mockKeychain struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[service+"/"+account] = value
	return nil
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `# empty config`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Server.MCPStdio {
		t.Error("Server.MCPStdio = true, want false")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if cfg.Prefs.Namespace != "flutter." {
		t.Errorf("Prefs.Namespace = %q, want %q", cfg.Prefs.Namespace, "flutter.")
	}
	if cfg.Prefs.Channel != "plugins.flutter.io/shared_preferences" {
		t.Errorf("Prefs.Channel = %q", cfg.Prefs.Channel)
	}
	if cfg.DeepLink.Channel != "app.channel.yapily.data" {
		t.Errorf("DeepLink.Channel = %q", cfg.DeepLink.Channel)
	}
	if cfg.DeepLink.Param != "payment" {
		t.Errorf("DeepLink.Param = %q, want %q", cfg.DeepLink.Param, "payment")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

// TestMissingFile verifies a nonexistent config file behaves like an empty one.
func TestMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "nope", "config.toml")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
}

// TestTOMLParsing verifies that all fields are correctly read from a TOML file.
func TestTOMLParsing(t *testing.T) {
	clearEnv(t)
	content := `
[server]
port = 5000
mcp_stdio = true

[storage]
data_dir = "/tmp/ipisp-test"

[prefs]
namespace = "app."
channel = "prefs/channel"

[deeplink]
channel = "payments/channel"
param = "jwt"

[log]
level = "debug"
format = "json"
`
	path := writeTempConfig(t, content)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if !cfg.Server.MCPStdio {
		t.Error("Server.MCPStdio = false, want true")
	}
	if cfg.Storage.DataDir != "/tmp/ipisp-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Prefs.Namespace != "app." || cfg.Prefs.Channel != "prefs/channel" {
		t.Errorf("Prefs = %+v", cfg.Prefs)
	}
	if cfg.DeepLink.Channel != "payments/channel" || cfg.DeepLink.Param != "jwt" {
		t.Errorf("DeepLink = %+v", cfg.DeepLink)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "[server]\nport = 5000\n\n[deeplink]\nparam = \"file\"\n")

	t.Setenv("IPISP_SERVER_PORT", "6000")
	t.Setenv("IPISP_DEEPLINK_PARAM", "env")
	t.Setenv("IPISP_SERVER_MCP_STDIO", "true")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.DeepLink.Param != "env" {
		t.Errorf("DeepLink.Param = %q, want %q", cfg.DeepLink.Param, "env")
	}
	if !cfg.Server.MCPStdio {
		t.Error("Server.MCPStdio = false, want true")
	}
}

// TestEnvOverride_InvalidIntKeepsValue verifies a malformed env var is ignored.
func TestEnvOverride_InvalidIntKeepsValue(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "[server]\nport = 5000\n")
	t.Setenv("IPISP_SERVER_PORT", "lots")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"port range", "[server]\nport = 70000\n", "server.port"},
		{"same channels", "[prefs]\nchannel = \"x\"\n[deeplink]\nchannel = \"x\"\n", "must differ"},
		{"empty namespace", "[prefs]\nnamespace = \"\"\n", "prefs.namespace"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"bad format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"non-integer port", "[server]\nport = \"abc\"\n", "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeTempConfig(t, tt.content)
			_, err := loadWith(newFileBackend(path))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

// TestSetKey verifies written keys land in the right TOML tables and load back.
func TestSetKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ipisp", "config.toml")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "4242"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if err := setKeyWith(b, "deeplink.param", "token"); err != nil {
		t.Fatalf("set param: %v", err)
	}
	if err := setKeyWith(b, "server.mcp_stdio", "true"); err != nil {
		t.Fatalf("set mcp_stdio: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !strings.Contains(string(raw), "[server]") || !strings.Contains(string(raw), "port = 4242") {
		t.Errorf("config file missing [server] port:\n%s", raw)
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Port != 4242 || cfg.DeepLink.Param != "token" || !cfg.Server.MCPStdio {
		t.Errorf("reloaded config = %+v", cfg)
	}
}

func TestSetKey_Invalid(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.toml"))

	if err := setKeyWith(b, "no.such.key", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("unknown key error = %v", err)
	}
	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "server.mcp_stdio", "maybe"); err == nil {
		t.Error("expected error for non-boolean value")
	}
}

func TestFileBackend_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	b := newFileBackend(path)
	if err := b.SetString("log.level", "warn"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete("log.level"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := newFileBackend(path).GetString("log.level"); ok {
		t.Error("log.level still present after Delete")
	}
	if err := b.Delete("missing.key"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestShowAllAndValidKeys(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	keys := ValidKeys()
	if len(infos) != len(keys) {
		t.Fatalf("ShowAll has %d entries, ValidKeys %d", len(infos), len(keys))
	}
	for i, info := range infos {
		if info.Key != keys[i] {
			t.Errorf("entry %d key = %q, want %q", i, info.Key, keys[i])
		}
		if !strings.HasPrefix(info.EnvVar, "IPISP_") {
			t.Errorf("%s env var = %q", info.Key, info.EnvVar)
		}
		if info.Key == "server.port" && info.Value != "4100" {
			t.Errorf("server.port value = %q", info.Value)
		}
	}
}

func TestGetAPIToken(t *testing.T) {
	t.Run("env wins", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "from-env")
		kc := &mockKeychain{values: map[string]string{"ipisp/api_token": "stored"}}
		got, err := GetAPIToken(kc)
		if err != nil || got != "from-env" {
			t.Errorf("GetAPIToken = %q, %v; want from-env", got, err)
		}
	})

	t.Run("stored token", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		kc := &mockKeychain{values: map[string]string{"ipisp/api_token": "stored"}}
		got, err := GetAPIToken(kc)
		if err != nil || got != "stored" {
			t.Errorf("GetAPIToken = %q, %v; want stored", got, err)
		}
	})

	t.Run("generated once", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		kc := &mockKeychain{}
		first, err := GetAPIToken(kc)
		if err != nil {
			t.Fatalf("GetAPIToken: %v", err)
		}
		if len(first) != 36 {
			t.Errorf("generated token %q is not a UUID", first)
		}
		second, err := GetAPIToken(kc)
		if err != nil || second != first {
			t.Errorf("second GetAPIToken = %q, %v; want %q", second, err, first)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		kc := &mockKeychain{setErr: errors.New("locked")}
		if _, err := GetAPIToken(kc); err == nil {
			t.Error("expected error when the token cannot be stored")
		}
	})
}
