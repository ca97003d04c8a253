package launcher

import (
	"errors"
	"fmt"
	"strings"
)

// Target names one of the application entry points.
type Target string

const (
	TargetDesktop Target = "desktop"
	TargetAPI     Target = "api"
	TargetWebUI   Target = "webui"
)

// ErrUnknownTarget is returned for target names outside Targets().
var ErrUnknownTarget = errors.New("unknown target")

// Targets lists the supported entry points.
func Targets() []Target {
	return []Target{TargetWebUI, TargetAPI, TargetDesktop}
}

// ParseTarget normalizes a user supplied target name.
func ParseTarget(value string) (Target, error) {
	candidate := Target(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range Targets() {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w %q (expected webui, api, or desktop)", ErrUnknownTarget, value)
}

func (t Target) String() string { return string(t) }

// Description is the one-line summary shown in help output.
func (t Target) Description() string {
	switch t {
	case TargetWebUI:
		return "Streamlit web interface"
	case TargetAPI:
		return "HTTP API server"
	case TargetDesktop:
		return "Desktop window wrapping the web interface"
	default:
		return ""
	}
}
