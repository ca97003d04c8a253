package preflight

import (
	"context"
	"runtime"
	"time"

	"mptx/internal/config"
	"mptx/internal/deps"
	"mptx/internal/envconf"
)

// Result reports the outcome of a single preflight check.
// Optional results are reported as warnings and never fail the run.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Snapshot is the prepared launch environment the checks inspect.
type Snapshot struct {
	Root       string
	Env        envconf.Environ
	Report     envconf.Report
	VirtualEnv string
	GOOS       string
}

func (s Snapshot) goos() string {
	if s.GOOS != "" {
		return s.GOOS
	}
	return runtime.GOOS
}

func (s Snapshot) lookup(name string) string {
	if s.Env == nil {
		return ""
	}
	value, _ := s.Env.LookupEnv(name)
	return value
}

// RunAll executes every applicable check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, snap Snapshot) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Project root", snap.Root))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckEntryScripts(cfg, snap.Root)...)
	results = append(results, CheckVirtualenv(snap))
	results = append(results, CheckCUDNN(cfg, snap))
	results = append(results, CheckTuning(snap)...)

	checkCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	results = append(results, CheckPythonModule(checkCtx, cfg, snap, "streamlit"))
	return results
}

// CheckSystemDeps evaluates the external binaries against the prepared PATH.
func CheckSystemDeps(cfg *config.Config, snap Snapshot) []deps.Status {
	searchPath := snap.lookup("PATH")
	statuses := deps.CheckBinaries(deps.DefaultRequirements(cfg.Runtime.Python), searchPath, snap.goos())
	return append(statuses, deps.CheckFFmpeg(snap.lookup("IMAGEIO_FFMPEG_EXE"), searchPath, snap.goos()))
}
