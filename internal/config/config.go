package config

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Prefs    PrefsConfig
	DeepLink DeepLinkConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	MCPStdio bool
}

type StorageConfig struct {
	DataDir string
}

type PrefsConfig struct {
	Namespace string
	Channel   string
}

type DeepLinkConfig struct {
	Channel string
	Param   string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Prefs: PrefsConfig{
			Namespace: "flutter.",
			Channel:   "plugins.flutter.io/shared_preferences",
		},
		DeepLink: DeepLinkConfig{
			Channel: "app.channel.yapily.data",
			Param:   "payment",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.yapily.ipisp).
// Elsewhere it is a TOML file at $XDG_CONFIG_HOME/ipisp/config.toml.
//
// Environment variables (IPISP_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
