package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mptx/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "mptx", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Paths.ProjectRoot != "" {
		t.Fatalf("expected empty project root, got %q", cfg.Paths.ProjectRoot)
	}
	if cfg.Runtime.PrefixEnv != "CONDA_PREFIX" {
		t.Fatalf("unexpected prefix env: %q", cfg.Runtime.PrefixEnv)
	}
	if got := strings.Join(cfg.Runtime.VenvDirs, ","); got != ".venv,venv" {
		t.Fatalf("unexpected venv dirs: %q", got)
	}
	if cfg.Tuning.ChatterboxCFGWeight != "0.2" {
		t.Fatalf("unexpected cfg weight default: %q", cfg.Tuning.ChatterboxCFGWeight)
	}
	if cfg.Launch.StartupTimeout != 30 {
		t.Fatalf("unexpected startup timeout: %d", cfg.Launch.StartupTimeout)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mptx.toml")

	type payload struct {
		Paths struct {
			ProjectRoot string `toml:"project_root"`
			LogDir      string `toml:"log_dir"`
		} `toml:"paths"`
		Tuning struct {
			ChatterboxCFGWeight string            `toml:"chatterbox_cfg_weight"`
			Extra               map[string]string `toml:"extra"`
		} `toml:"tuning"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.ProjectRoot = filepath.Join(tempDir, "app")
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Tuning.ChatterboxCFGWeight = " 0.35 "
	custom.Tuning.Extra = map[string]string{"HF_HUB_OFFLINE": "1", " ": "dropped"}
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.ProjectRoot != filepath.Join(tempDir, "app") {
		t.Fatalf("unexpected project root: %q", cfg.Paths.ProjectRoot)
	}
	if cfg.Tuning.ChatterboxCFGWeight != "0.35" {
		t.Fatalf("expected trimmed weight, got %q", cfg.Tuning.ChatterboxCFGWeight)
	}
	if cfg.Tuning.ChatterboxChunkThreshold != "800" {
		t.Fatalf("expected default chunk threshold, got %q", cfg.Tuning.ChatterboxChunkThreshold)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if len(cfg.Tuning.Extra) != 1 || cfg.Tuning.Extra["HF_HUB_OFFLINE"] != "1" {
		t.Fatalf("unexpected extra tuning: %v", cfg.Tuning.Extra)
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config")
	}
	if resolved != target {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Launch.WebUIScript != "webui/Main.py" {
		t.Fatalf("unexpected webui script: %q", cfg.Launch.WebUIScript)
	}
}

func TestValidateRejectsBadTuning(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "weight not numeric",
			mutate: func(c *config.Config) { c.Tuning.ChatterboxCFGWeight = "heavy" },
			want:   "chatterbox_cfg_weight must be a number",
		},
		{
			name:   "weight out of range",
			mutate: func(c *config.Config) { c.Tuning.ChatterboxCFGWeight = "1.5" },
			want:   "between 0 and 1",
		},
		{
			name:   "threshold zero",
			mutate: func(c *config.Config) { c.Tuning.ChatterboxChunkThreshold = "0" },
			want:   "chunk_threshold must be positive",
		},
		{
			name:   "absolute script",
			mutate: func(c *config.Config) { c.Launch.APIScript = "/srv/app/main.py" },
			want:   "launch.api_script",
		},
		{
			name:   "absolute venv",
			mutate: func(c *config.Config) { c.Runtime.VenvDirs = []string{"/opt/venv"} },
			want:   "venv_dirs",
		},
		{
			name:   "bad level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestTuningDefaultsOrderAndExtra(t *testing.T) {
	cfg := config.Default()
	cfg.Tuning.Extra = map[string]string{"ZED": "1", "ALPHA": "2"}

	vars := cfg.TuningDefaults()
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	want := "PYTORCH_CUDA_ALLOC_CONF,CUDNN_LOGINFO_DBG,PYTHONWARNINGS,CHATTERBOX_CFG_WEIGHT,CHATTERBOX_CHUNK_THRESHOLD,CHATTERBOX_DEVICE,PYANNOTE_CACHE,ALPHA,ZED"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("unexpected order:\n got %s\nwant %s", got, want)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Tuning.PythonWarnings != "ignore::UserWarning:streamlit" {
		t.Fatalf("unexpected warnings filter: %q", cfg.Tuning.PythonWarnings)
	}
}
