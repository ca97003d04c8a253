package launcher

import (
	"os"
	"path/filepath"
	"strings"

	"mptx/internal/envconf"
)

// DetectVenv returns the first of dirs under root that looks like a
// virtualenv (contains the platform scripts directory).
func DetectVenv(root string, dirs []string, goos string) (string, bool) {
	for _, rel := range dirs {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		dir := filepath.Join(root, rel)
		info, err := os.Stat(venvBin(dir, goos))
		if err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// ActivateVenv applies what an activate script would: VIRTUAL_ENV, the
// scripts directory first on PATH, and no PYTHONHOME.
func ActivateVenv(env envconf.Environ, dir, goos string) error {
	if err := env.Setenv("VIRTUAL_ENV", dir); err != nil {
		return err
	}
	if _, err := envconf.PrependPath(env, "PATH", venvBin(dir, goos), envconf.ListSeparator(goos)); err != nil {
		return err
	}
	return env.Unsetenv("PYTHONHOME")
}

func venvBin(dir, goos string) string {
	if goos == "windows" {
		return filepath.Join(dir, "Scripts")
	}
	return filepath.Join(dir, "bin")
}
