package config

import (
	"fmt"
	"strings"
)

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Prefs.Namespace == "" {
		return fmt.Errorf("prefs.namespace is required")
	}
	if c.Prefs.Channel == "" || c.DeepLink.Channel == "" {
		return fmt.Errorf("prefs.channel and deeplink.channel are required")
	}
	if c.Prefs.Channel == c.DeepLink.Channel {
		return fmt.Errorf("prefs.channel and deeplink.channel must differ (both %q)", c.Prefs.Channel)
	}
	if c.DeepLink.Param == "" {
		return fmt.Errorf("deeplink.param is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json; got %q", c.Log.Format)
	}
	return nil
}
