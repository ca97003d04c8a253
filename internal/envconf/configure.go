package envconf

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"mptx/internal/config"
	"mptx/internal/logging"
)

// Source records where a variable's final value came from.
type Source string

const (
	SourceCaller  Source = "caller"
	SourceDotEnv  Source = "dotenv"
	SourceDefault Source = "default"
)

// Variable is a tuning variable with its default value.
type Variable struct {
	Name        string
	Default     string
	Description string
}

// Assignment is the resolved value of one variable after Configure.
type Assignment struct {
	Name   string
	Value  string
	Source Source
}

// Report summarizes what Configure observed and changed.
type Report struct {
	Prefix            string
	CUDNNDir          string
	SearchPathVar     string
	SearchPathChanged bool
	Assignments       []Assignment
	Warnings          []string
}

// Changed reports whether Configure modified the environment.
func (r Report) Changed() bool {
	if r.SearchPathChanged {
		return true
	}
	for _, a := range r.Assignments {
		if a.Source == SourceDefault {
			return true
		}
	}
	return false
}

// MarkSource relabels assignments that were filled by an earlier step such
// as the .env overlay.
func (r *Report) MarkSource(assignments []Assignment) {
	bySource := make(map[string]Source, len(assignments))
	for _, a := range assignments {
		bySource[a.Name] = a.Source
	}
	for i, a := range r.Assignments {
		if src, ok := bySource[a.Name]; ok && a.Source == SourceCaller {
			r.Assignments[i].Source = src
		}
	}
}

// Options controls a Configure call.
type Options struct {
	// PrefixVar names the variable holding the active environment prefix.
	PrefixVar string
	// CUDNNDir is probed before the prefix layout.
	CUDNNDir  string
	Variables []Variable
	// GOOS selects platform conventions. Defaults to runtime.GOOS.
	GOOS   string
	Logger *slog.Logger
}

// DefaultVariables returns the built-in tuning variables in export order.
func DefaultVariables() []Variable {
	return FromConfig(nil)
}

// FromConfig converts configured tuning defaults into Variables. A nil config
// yields the built-in defaults.
func FromConfig(cfg *config.Config) []Variable {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	tuning := cfg.TuningDefaults()
	vars := make([]Variable, 0, len(tuning))
	for _, tv := range tuning {
		vars = append(vars, Variable{Name: tv.Name, Default: tv.Value, Description: tv.Description})
	}
	return vars
}

// OptionsFromConfig builds Options for the current platform.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := Options{Variables: FromConfig(cfg), Logger: logger}
	if cfg != nil {
		opts.PrefixVar = cfg.Runtime.PrefixEnv
		opts.CUDNNDir = cfg.Runtime.CUDNNDir
	}
	return opts
}

// Configure prepares env for the Python application. Missing prefixes and
// cuDNN directories are warnings; only a failed Setenv returns an error.
func Configure(env Environ, opts Options) (Report, error) {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	prefixVar := strings.TrimSpace(opts.PrefixVar)
	if prefixVar == "" {
		prefixVar = "CONDA_PREFIX"
	}
	logger := logging.NewComponentLogger(opts.Logger, "envconf")

	report := Report{SearchPathVar: SearchPathVar(goos)}

	prefix, _ := env.LookupEnv(prefixVar)
	prefix = strings.TrimSpace(prefix)
	report.Prefix = prefix

	override := strings.TrimSpace(opts.CUDNNDir)
	if prefix == "" {
		msg := fmt.Sprintf("%s is not set; skipping cuDNN library path", prefixVar)
		impact := "GPU libraries resolve through the system loader only"
		if override != "" {
			msg = fmt.Sprintf("%s is not set; using runtime.cudnn_dir only", prefixVar)
			impact = "only runtime.cudnn_dir is probed for cuDNN"
		}
		report.Warnings = append(report.Warnings, msg)
		logging.WarnWithContext(logger, "no active environment", "env_prefix_missing",
			logging.String("variable", prefixVar),
			logging.String(logging.FieldErrorHint, "activate the conda environment before launching"),
			logging.String(logging.FieldImpact, impact),
		)
	}

	if prefix != "" || override != "" {
		if err := addCUDNN(env, &report, prefix, override, goos, logger); err != nil {
			return report, err
		}
	}

	for _, v := range opts.Variables {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			continue
		}
		if current, ok := env.LookupEnv(name); ok {
			report.Assignments = append(report.Assignments, Assignment{Name: name, Value: current, Source: SourceCaller})
			continue
		}
		if v.Default == "" {
			continue
		}
		if err := env.Setenv(name, v.Default); err != nil {
			return report, fmt.Errorf("set %s: %w", name, err)
		}
		report.Assignments = append(report.Assignments, Assignment{Name: name, Value: v.Default, Source: SourceDefault})
		logger.Debug("tuning default applied", logging.String("variable", name), logging.String("value", v.Default))
	}

	return report, nil
}

// addCUDNN locates the cuDNN directory and prepends it to the search path.
func addCUDNN(env Environ, report *Report, prefix, override, goos string, logger *slog.Logger) error {
	dir, found := LocateCUDNN(prefix, override, goos)
	if !found {
		msg := "cuDNN library directory not found"
		report.Warnings = append(report.Warnings, msg)
		logging.WarnWithContext(logger, msg, "cudnn_missing",
			logging.String("prefix", prefix),
			logging.String(logging.FieldErrorHint, "install the nvidia-cudnn wheel or set runtime.cudnn_dir"),
			logging.String(logging.FieldImpact, report.SearchPathVar+" left unchanged"),
		)
		return nil
	}
	report.CUDNNDir = dir
	changed, err := PrependPath(env, report.SearchPathVar, dir, ListSeparator(goos))
	if err != nil {
		return fmt.Errorf("set %s: %w", report.SearchPathVar, err)
	}
	report.SearchPathChanged = changed
	if changed {
		logger.Info("cuDNN library path added",
			logging.String("path", dir),
			logging.String("variable", report.SearchPathVar),
			logging.String(logging.FieldEventType, "cudnn_path_added"),
		)
	} else {
		logger.Debug("cuDNN library path already present", logging.String("path", dir))
	}
	return nil
}
