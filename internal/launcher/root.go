package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mptx/internal/config"
)

// ResolveRoot picks the project root: explicit flag, then configured path,
// then the directory holding the symlink-resolved executable. The caller's
// working directory is never consulted.
func ResolveRoot(explicit, configured string, executable func() (string, error)) (string, error) {
	for _, candidate := range []string{explicit, configured} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(candidate))
		if err != nil {
			return "", err
		}
		return checkRoot(expanded)
	}

	if executable == nil {
		executable = os.Executable
	}
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable %s: %w", exe, err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolve executable %s: %w", resolved, err)
	}
	return checkRoot(filepath.Dir(abs))
}

func checkRoot(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", dir)
	}
	return dir, nil
}
