package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateTuning(); err != nil {
		return err
	}
	if err := c.validateLaunch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRuntime() error {
	if strings.ContainsAny(c.Runtime.PrefixEnv, "= \t") {
		return fmt.Errorf("runtime.prefix_env %q is not a valid variable name", c.Runtime.PrefixEnv)
	}
	for _, dir := range c.Runtime.VenvDirs {
		if filepath.IsAbs(dir) {
			return fmt.Errorf("runtime.venv_dirs entry %q must be relative to the project root", dir)
		}
	}
	return nil
}

func (c *Config) validateTuning() error {
	weight, err := strconv.ParseFloat(c.Tuning.ChatterboxCFGWeight, 64)
	if err != nil {
		return fmt.Errorf("tuning.chatterbox_cfg_weight must be a number: %w", err)
	}
	if weight < 0 || weight > 1 {
		return errors.New("tuning.chatterbox_cfg_weight must be between 0 and 1")
	}
	threshold, err := strconv.Atoi(c.Tuning.ChatterboxChunkThreshold)
	if err != nil {
		return fmt.Errorf("tuning.chatterbox_chunk_threshold must be an integer: %w", err)
	}
	if threshold <= 0 {
		return errors.New("tuning.chatterbox_chunk_threshold must be positive")
	}
	for name := range c.Tuning.Extra {
		if strings.ContainsAny(name, "= \t") {
			return fmt.Errorf("tuning.extra key %q is not a valid variable name", name)
		}
	}
	return nil
}

func (c *Config) validateLaunch() error {
	for key, script := range map[string]string{
		"launch.webui_script":   c.Launch.WebUIScript,
		"launch.api_script":     c.Launch.APIScript,
		"launch.desktop_script": c.Launch.DesktopScript,
	} {
		if filepath.IsAbs(script) {
			return fmt.Errorf("%s must be relative to the project root", key)
		}
	}
	if c.Launch.StartupTimeout <= 0 {
		return errors.New("launch.startup_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
