package envconf

import (
	"os"
	"sort"
	"strings"
)

// Environ is the minimal view of an environment the configurator needs.
type Environ interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// ProcessEnv operates on the live process environment.
type ProcessEnv struct{}

func (ProcessEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (ProcessEnv) Setenv(key, value string) error      { return os.Setenv(key, value) }
func (ProcessEnv) Unsetenv(key string) error           { return os.Unsetenv(key) }

// MapEnv is an in-memory environment. Keys compare case-insensitively when
// FoldCase is set, matching Windows semantics.
type MapEnv struct {
	FoldCase bool
	values   map[string]entry
}

type entry struct {
	name  string
	value string
}

// NewMapEnv builds a MapEnv from KEY=VALUE pairs. Later duplicates win.
func NewMapEnv(pairs []string, foldCase bool) *MapEnv {
	env := &MapEnv{FoldCase: foldCase, values: make(map[string]entry, len(pairs))}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		env.values[env.key(name)] = entry{name: name, value: value}
	}
	return env
}

// Snapshot copies the current process environment.
func Snapshot(foldCase bool) *MapEnv {
	return NewMapEnv(os.Environ(), foldCase)
}

func (m *MapEnv) key(name string) string {
	if m.FoldCase {
		return strings.ToUpper(name)
	}
	return name
}

func (m *MapEnv) LookupEnv(key string) (string, bool) {
	e, ok := m.values[m.key(key)]
	return e.value, ok
}

func (m *MapEnv) Setenv(key, value string) error {
	if m.values == nil {
		m.values = make(map[string]entry)
	}
	k := m.key(key)
	name := key
	if existing, ok := m.values[k]; ok {
		name = existing.name
	}
	m.values[k] = entry{name: name, value: value}
	return nil
}

func (m *MapEnv) Unsetenv(key string) error {
	delete(m.values, m.key(key))
	return nil
}

// Environ returns KEY=VALUE pairs sorted by name, suitable for exec.
func (m *MapEnv) Environ() []string {
	out := make([]string, 0, len(m.values))
	for _, e := range m.values {
		out = append(out, e.name+"="+e.value)
	}
	sort.Strings(out)
	return out
}
