package deps

import (
	"fmt"
	"strings"
)

// Requirement defines an external binary the Python application relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// DefaultRequirements lists the binaries the launched application expects.
// python is the configured interpreter name or path.
func DefaultRequirements(python string) []Requirement {
	return []Requirement{
		{Name: "Python", Command: python, Description: "Runs the application entry points"},
		{Name: "nvidia-smi", Command: "nvidia-smi", Description: "Reports GPU availability for CUDA inference", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements against searchPath, a
// PATH-style list for goos. An empty searchPath falls back to the process PATH.
func CheckBinaries(requirements []Requirement, searchPath, goos string) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := LookPathIn(cmd, searchPath, goos)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}
