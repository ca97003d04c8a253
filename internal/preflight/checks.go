package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"mptx/internal/config"
	"mptx/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := accessReadWrite(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEntryScripts reports whether each entry point exists under root.
func CheckEntryScripts(cfg *config.Config, root string) []Result {
	entries := []struct {
		name   string
		script string
	}{
		{"Web UI entry", cfg.Launch.WebUIScript},
		{"API entry", cfg.Launch.APIScript},
		{"Desktop entry", cfg.Launch.DesktopScript},
	}
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(root, filepath.FromSlash(e.script))
		info, err := os.Stat(path)
		switch {
		case err != nil:
			results = append(results, Result{Name: e.name, Detail: fmt.Sprintf("%s (missing)", e.script)})
		case info.IsDir():
			results = append(results, Result{Name: e.name, Detail: fmt.Sprintf("%s (is a directory)", e.script)})
		default:
			results = append(results, Result{Name: e.name, Passed: true, Detail: e.script})
		}
	}
	return results
}

// CheckVirtualenv reports the activated project virtualenv. Its absence is
// not a failure; the configured interpreter is used instead.
func CheckVirtualenv(snap Snapshot) Result {
	const name = "Virtualenv"
	if snap.VirtualEnv == "" {
		return Result{Name: name, Passed: true, Detail: "none (using interpreter from PATH)"}
	}
	return Result{Name: name, Passed: true, Detail: snap.VirtualEnv}
}

// CheckCUDNN reports the result of cuDNN discovery. A missing directory is
// optional: CPU-only installs run without it.
func CheckCUDNN(cfg *config.Config, snap Snapshot) Result {
	const name = "cuDNN libraries"
	report := snap.Report
	switch {
	case report.CUDNNDir != "":
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (on %s)", report.CUDNNDir, report.SearchPathVar)}
	case report.Prefix == "" && strings.TrimSpace(cfg.Runtime.CUDNNDir) == "":
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s not set; activate the conda environment", cfg.Runtime.PrefixEnv)}
	default:
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("not found under %s; GPU inference may fail", report.Prefix)}
	}
}

// CheckTuning validates the effective Chatterbox values, whatever their source.
func CheckTuning(snap Snapshot) []Result {
	var results []Result

	weight := snap.lookup("CHATTERBOX_CFG_WEIGHT")
	if w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64); err != nil || w < 0 || w > 1 {
		results = append(results, Result{Name: "CHATTERBOX_CFG_WEIGHT", Detail: fmt.Sprintf("%q (expected a number between 0 and 1)", weight)})
	} else {
		results = append(results, Result{Name: "CHATTERBOX_CFG_WEIGHT", Passed: true, Detail: weight})
	}

	threshold := snap.lookup("CHATTERBOX_CHUNK_THRESHOLD")
	if n, err := strconv.Atoi(strings.TrimSpace(threshold)); err != nil || n <= 0 {
		results = append(results, Result{Name: "CHATTERBOX_CHUNK_THRESHOLD", Detail: fmt.Sprintf("%q (expected a positive integer)", threshold)})
	} else {
		results = append(results, Result{Name: "CHATTERBOX_CHUNK_THRESHOLD", Passed: true, Detail: threshold})
	}
	return results
}

// CheckPythonModule verifies that the interpreter a launch would use can
// import module.
func CheckPythonModule(ctx context.Context, cfg *config.Config, snap Snapshot, module string) Result {
	name := "Python module " + module
	python, err := deps.LookPathIn(cfg.Runtime.Python, snap.lookup("PATH"), snap.goos())
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("interpreter %q not found", cfg.Runtime.Python)}
	}

	cmd := exec.CommandContext(ctx, python, "-c", "import "+module)
	cmd.Dir = snap.Root
	if env, ok := snap.Env.(interface{ Environ() []string }); ok {
		cmd.Env = env.Environ()
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Name: name, Detail: "import timed out"}
		}
		detail := lastLine(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: "importable by " + python}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
