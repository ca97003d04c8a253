package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mptx/internal/config"
	"mptx/internal/launcher"
	"mptx/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	pythonDir  string
	homeDir    string

	plans   []launcher.Plan
	execErr error
}

// setupCLITestEnv writes a config pointing at a populated project, swaps
// process exec for a recorder, and feeds the launcher a fixed environment.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithProject()}, opts...)...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		pythonDir:  testsupport.SystemPython(t),
		homeDir:    homeDir,
	}
	writeTestConfig(t, env.configPath, cfg)

	prevExec, prevEnv, prevExe := launchExec, environSnap, executableFn
	launchExec = func(_ context.Context, plan launcher.Plan) error {
		env.plans = append(env.plans, plan)
		return env.execErr
	}
	environSnap = env.environ
	executableFn = func() (string, error) { return filepath.Join(cfg.Paths.ProjectRoot, "mptx"), nil }
	t.Cleanup(func() {
		launchExec, environSnap, executableFn = prevExec, prevEnv, prevExe
	})
	return env
}

func (e *cliTestEnv) environ() []string {
	pairs := []string{"PATH=" + e.pythonDir, "HOME=" + e.homeDir}
	if name := e.cfg.Runtime.PrefixEnv; name != "CONDA_PREFIX" {
		if value, ok := os.LookupEnv(name); ok {
			pairs = append(pairs, name+"="+value)
		}
	}
	return pairs
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
