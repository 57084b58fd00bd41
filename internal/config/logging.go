package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/framefeed/internal/logging"
)

// LoadLoggingModules reads per-module log levels from the [logging.modules]
// table of a TOML config file. Returns nil if the file or table is absent.
func LoadLoggingModules(configPath string) map[string]string {
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	var raw struct {
		Logging struct {
			Modules map[string]string `toml:"modules"`
		} `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw.Logging.Modules
}

// LoggingConfig builds a logging configuration from global settings plus the
// module table of the config file.
func LoggingConfig(configPath, level, format string, bufferSize int) logging.Config {
	return logging.Config{
		Level:      level,
		Format:     format,
		BufferSize: bufferSize,
		Modules:    LoadLoggingModules(configPath),
	}
}
