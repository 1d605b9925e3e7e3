package recorder

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"rewind/internal/utils"
)

const configFileName = "settings.json"

func configFilePath() (string, error) {
	dir, err := utils.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadConfig reads a persisted Config from the user's per-app config
// directory, falling back to DefaultConfig when the file is absent or
// malformed (spec §6, ambient stack: "settings persistence... via
// encoding/json to the user's per-app config directory", grounded on
// teacher internal/app/config.go's LoadConfig).
func LoadConfig() Config {
	cfg := DefaultConfig()

	path, err := configFilePath()
	if err != nil {
		slog.Warn("failed to resolve config path, using defaults", "error", err)
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read config file, using defaults", "error", err)
		}
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("failed to parse config file, using defaults", "error", err)
		return DefaultConfig()
	}

	slog.Info("config loaded", "path", path)
	return cfg
}

// SaveConfig persists cfg as indented JSON to the user's per-app config
// directory.
func SaveConfig(cfg Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	slog.Info("config saved", "path", path)
	return nil
}
