package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mptx/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The project root points at an empty directory under the same base; use
// WithProject to populate it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectRoot = filepath.Join(base, "project")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Runtime.DotEnv = true

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	if err := os.MkdirAll(cfgVal.Paths.ProjectRoot, 0o755); err != nil {
		t.Fatalf("mkdir project: %v", err)
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProject writes the three entry scripts under the project root.
func WithProject() ConfigOption {
	return func(b *configBuilder) {
		root := b.cfg.Paths.ProjectRoot
		for _, rel := range []string{b.cfg.Launch.WebUIScript, b.cfg.Launch.APIScript, b.cfg.Launch.DesktopScript} {
			WriteFile(b.t, filepath.Join(root, rel), "print('ok')\n", 0o644)
		}
	}
}

// WithVenv creates <root>/<name> with stub interpreters in its bin directory.
func WithVenv(name string) ConfigOption {
	return func(b *configBuilder) {
		bin := filepath.Join(b.cfg.Paths.ProjectRoot, name, "bin")
		StubExecutable(b.t, bin, "python", 0)
		StubExecutable(b.t, bin, "python3", 0)
	}
}

// SystemPython writes a stub python3 into a fresh directory outside the
// project and returns that directory for use as PATH.
func SystemPython(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	StubExecutable(t, dir, "python3", 0)
	return dir
}

// WithPrefix creates a fake conda prefix, optionally with the cuDNN wheel
// directory, and exports it through a test-only prefix variable.
func WithPrefix(withCUDNN bool) ConfigOption {
	return func(b *configBuilder) {
		prefix := filepath.Join(b.baseDir, "conda")
		if err := os.MkdirAll(prefix, 0o755); err != nil {
			b.t.Fatalf("mkdir prefix: %v", err)
		}
		if withCUDNN {
			dir := filepath.Join(prefix, "lib", "python3.10", "site-packages", "nvidia", "cudnn", "lib")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir cudnn: %v", err)
			}
		}
		b.cfg.Runtime.PrefixEnv = "MPTX_TEST_PREFIX"
		b.t.Setenv("MPTX_TEST_PREFIX", prefix)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
