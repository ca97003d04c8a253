package config

import (
	"fmt"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRuntime(); err != nil {
		return err
	}
	c.normalizeTuning()
	c.normalizeLaunch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectRoot) != "" {
		if c.Paths.ProjectRoot, err = expandPath(strings.TrimSpace(c.Paths.ProjectRoot)); err != nil {
			return fmt.Errorf("paths.project_root: %w", err)
		}
	} else {
		c.Paths.ProjectRoot = ""
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRuntime() error {
	c.Runtime.PrefixEnv = strings.TrimSpace(c.Runtime.PrefixEnv)
	if c.Runtime.PrefixEnv == "" {
		c.Runtime.PrefixEnv = defaultPrefixEnv
	}
	if dir := strings.TrimSpace(c.Runtime.CUDNNDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("runtime.cudnn_dir: %w", err)
		}
		c.Runtime.CUDNNDir = expanded
	} else {
		c.Runtime.CUDNNDir = ""
	}
	dirs := make([]string, 0, len(c.Runtime.VenvDirs))
	seen := make(map[string]struct{}, len(c.Runtime.VenvDirs))
	for _, dir := range c.Runtime.VenvDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		dirs = append(dirs, trimmed)
	}
	if len(dirs) == 0 {
		dirs = append(dirs, defaultVenvDirs...)
	}
	c.Runtime.VenvDirs = dirs
	c.Runtime.Python = strings.TrimSpace(c.Runtime.Python)
	if c.Runtime.Python == "" {
		c.Runtime.Python = defaultPythonBinary()
	}
	return nil
}

func (c *Config) normalizeTuning() {
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Tuning.PytorchCUDAAllocConf, defaultPytorchCUDAAllocConf)
	fill(&c.Tuning.CUDNNLogInfoDbg, defaultCUDNNLogInfoDbg)
	fill(&c.Tuning.PythonWarnings, defaultPythonWarnings)
	fill(&c.Tuning.ChatterboxCFGWeight, defaultChatterboxCFGWeight)
	fill(&c.Tuning.ChatterboxChunkThreshold, defaultChatterboxChunkThreshold)
	fill(&c.Tuning.ChatterboxDevice, defaultChatterboxDevice)
	fill(&c.Tuning.PyannoteCache, defaultPyannoteCache)

	if len(c.Tuning.Extra) == 0 {
		c.Tuning.Extra = nil
		return
	}
	extra := make(map[string]string, len(c.Tuning.Extra))
	for key, value := range c.Tuning.Extra {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		extra[name] = value
	}
	c.Tuning.Extra = extra
}

func (c *Config) normalizeLaunch() {
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Launch.WebUIScript, defaultWebUIScript)
	fill(&c.Launch.APIScript, defaultAPIScript)
	fill(&c.Launch.DesktopScript, defaultDesktopScript)
	fill(&c.Launch.Host, defaultHost)
	if c.Launch.StartupTimeout <= 0 {
		c.Launch.StartupTimeout = defaultStartupTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
