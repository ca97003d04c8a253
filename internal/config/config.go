package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// ProjectRoot pins the application checkout. When empty the launcher
	// uses the directory holding the mptx executable.
	ProjectRoot string `toml:"project_root"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
}

// Runtime describes how the Python environment is discovered.
type Runtime struct {
	PrefixEnv string   `toml:"prefix_env"`
	CUDNNDir  string   `toml:"cudnn_dir"`
	VenvDirs  []string `toml:"venv_dirs"`
	Python    string   `toml:"python"`
	DotEnv    bool     `toml:"dotenv"`
}

// Tuning holds the default values for variables consumed by the Python
// application. They apply only when the caller has not set the variable.
type Tuning struct {
	PytorchCUDAAllocConf     string            `toml:"pytorch_cuda_alloc_conf"`
	CUDNNLogInfoDbg          string            `toml:"cudnn_loginfo_dbg"`
	PythonWarnings           string            `toml:"python_warnings"`
	ChatterboxCFGWeight      string            `toml:"chatterbox_cfg_weight"`
	ChatterboxChunkThreshold string            `toml:"chatterbox_chunk_threshold"`
	ChatterboxDevice         string            `toml:"chatterbox_device"`
	PyannoteCache            string            `toml:"pyannote_cache"`
	Extra                    map[string]string `toml:"extra"`
}

// Launch contains entry point and supervisor settings.
type Launch struct {
	WebUIScript    string `toml:"webui_script"`
	APIScript      string `toml:"api_script"`
	DesktopScript  string `toml:"desktop_script"`
	Host           string `toml:"host"`
	StartupTimeout int    `toml:"startup_timeout"`
	OpenBrowser    bool   `toml:"open_browser"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Journal toggles the launch history database.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for mptx.
//
// Configuration sections by subsystem:
//   - Paths: project root, log and state directories
//   - Runtime: environment prefix, cuDNN override, virtualenv and interpreter
//   - Tuning: defaults for the variables exported to the application
//   - Launch: entry scripts and supervisor behaviour
//   - Logging: log format, level, and retention
//   - Journal: launch history
type Config struct {
	Paths   Paths   `toml:"paths"`
	Runtime Runtime `toml:"runtime"`
	Tuning  Tuning  `toml:"tuning"`
	Launch  Launch  `toml:"launch"`
	Logging Logging `toml:"logging"`
	Journal Journal `toml:"journal"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mptx/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mptx.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the launch history database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "launches.db")
}

// ServeLockPath returns the supervisor single-instance lock location.
func (c *Config) ServeLockPath() string {
	return filepath.Join(c.Paths.StateDir, "serve.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultPythonBinary() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// TuningDefaults returns the tuning variables in export order, paired with
// their configured default values.
func (c *Config) TuningDefaults() []TuningVar {
	vars := []TuningVar{
		{Name: "PYTORCH_CUDA_ALLOC_CONF", Value: c.Tuning.PytorchCUDAAllocConf, Description: "GPU allocator fragmentation control"},
		{Name: "CUDNN_LOGINFO_DBG", Value: c.Tuning.CUDNNLogInfoDbg, Description: "cuDNN debug logging"},
		{Name: "PYTHONWARNINGS", Value: c.Tuning.PythonWarnings, Description: "Python warning filters"},
		{Name: "CHATTERBOX_CFG_WEIGHT", Value: c.Tuning.ChatterboxCFGWeight, Description: "Chatterbox pacing guidance"},
		{Name: "CHATTERBOX_CHUNK_THRESHOLD", Value: c.Tuning.ChatterboxChunkThreshold, Description: "Chatterbox text chunk length"},
		{Name: "CHATTERBOX_DEVICE", Value: c.Tuning.ChatterboxDevice, Description: "Chatterbox inference device"},
		{Name: "PYANNOTE_CACHE", Value: c.Tuning.PyannoteCache, Description: "pyannote model cache"},
	}
	for _, name := range sortedKeys(c.Tuning.Extra) {
		vars = append(vars, TuningVar{Name: name, Value: c.Tuning.Extra[name], Description: "extra"})
	}
	return vars
}

// TuningVar is a single default-if-unset variable.
type TuningVar struct {
	Name        string
	Value       string
	Description string
}
