package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when a binary is absent from the searched list.
var ErrNotFound = errors.New("executable not found")

// LookPathIn resolves name against searchPath instead of the process PATH.
// The launcher builds the child's PATH (venv bin first) before exec, so the
// interpreter has to be found in that list. Names containing a separator
// are checked directly.
func LookPathIn(name, searchPath, goos string) (string, error) {
	if goos == "" {
		goos = runtime.GOOS
	}
	if searchPath == "" && goos == runtime.GOOS {
		return exec.LookPath(name)
	}
	if strings.ContainsAny(name, `/\`) {
		if isExecutableFile(name, goos) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	sep := ":"
	if goos == "windows" {
		sep = ";"
	}
	for _, dir := range strings.Split(searchPath, sep) {
		if dir == "" {
			continue
		}
		for _, candidate := range candidateNames(name, goos) {
			path := filepath.Join(dir, candidate)
			if isExecutableFile(path, goos) {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

func candidateNames(name, goos string) []string {
	if goos != "windows" || filepath.Ext(name) != "" {
		return []string{name}
	}
	return []string{name + ".exe", name + ".bat", name + ".cmd", name}
}

// CheckFFmpeg reports the ffmpeg binary MoviePy will execute.
//
// MoviePy goes through imageio-ffmpeg, which honours IMAGEIO_FFMPEG_EXE and
// otherwise falls back to "ffmpeg" on PATH (or its bundled wheel binary,
// which is not visible from here).
func CheckFFmpeg(override, searchPath, goos string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by MoviePy for compositing",
		Optional:    true,
	}

	if candidate := strings.TrimSpace(override); candidate != "" {
		if resolved, err := LookPathIn(candidate, searchPath, goos); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Command = candidate
		result.Detail = fmt.Sprintf("IMAGEIO_FFMPEG_EXE %q is not executable", candidate)
		return result
	}

	if resolved, err := LookPathIn("ffmpeg", searchPath, goos); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = "ffmpeg"
	result.Available = false
	result.Detail = `binary "ffmpeg" not found; imageio-ffmpeg may still use its bundled copy`
	return result
}

func isExecutableFile(path, goos string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if goos == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
