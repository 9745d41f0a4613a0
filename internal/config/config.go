// Package config reads and writes the mrcli configuration file. The
// file is optional: everything it carries can also arrive via flags or
// the environment, and flags always win.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/output"
	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .mrcli.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Agents lists agent endpoints as host:port pairs, tried in order.
	Agents []string `yaml:"agents" mapstructure:"agents"`

	// Timeout is the starting request timeout in seconds.
	Timeout float64 `yaml:"timeout" mapstructure:"timeout"`

	// Mode is the starting output mode (text, buffered, csv).
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Targets seeds the session target list. Entries prefixed with ^
	// are regular expressions expanded at startup.
	Targets []string `yaml:"targets" mapstructure:"targets"`

	// History is the readline history file path. Empty disables
	// persistent history.
	History string `yaml:"history" mapstructure:"history"`
}

// DefaultConfig returns a config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Timeout: 90,
		Mode:    output.DefaultMode,
	}
}

// Validate checks the config for errors with structured messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config version %d is newer than this build understands (max %d)", cfg.Version, CurrentConfigVersion),
			"Update mrcli, or lower the version field")
	}

	if cfg.Timeout != 0 && cfg.Timeout < 1 {
		return errors.New(errors.ErrConfig,
			"1 second is the minimum timeout",
			"Set timeout to 1.0 or higher in the config file")
	}

	switch cfg.Mode {
	case "", output.ModeText, output.ModeBuffered, output.ModeCSV:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown output mode %q", cfg.Mode),
			fmt.Sprintf("Use one of: %s, %s, %s",
				output.ModeText, output.ModeBuffered, output.ModeCSV))
	}

	for _, agent := range cfg.Agents {
		if strings.TrimSpace(agent) == "" {
			return errors.New(errors.ErrConfig,
				"Empty agent endpoint in agents list",
				"Remove the empty entry or fill in a host:port value")
		}
	}

	return nil
}

// Save writes the config as YAML to path, creating or truncating it.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config", "")
	}

	header := "# mrcli configuration. Flags and MRCLI_AGENTS override these values.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file: "+path,
			"Check directory permissions")
	}
	return nil
}
