package envconf

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SearchPathVar names the variable the dynamic loader consults on goos.
func SearchPathVar(goos string) string {
	if goos == "windows" {
		return "PATH"
	}
	return "LD_LIBRARY_PATH"
}

// ListSeparator returns the path-list separator for goos.
func ListSeparator(goos string) string {
	if goos == "windows" {
		return ";"
	}
	return ":"
}

// CUDNNCandidates lists the directories probed under an environment prefix,
// most preferred first. The explicit override, when set, leads the list.
func CUDNNCandidates(prefix, override, goos string) []string {
	var out []string
	if override = strings.TrimSpace(override); override != "" {
		out = append(out, override)
	}
	if prefix == "" {
		return out
	}
	if goos == "windows" {
		return append(out, filepath.Join(prefix, "Lib", "site-packages", "nvidia", "cudnn", "bin"))
	}
	matches, _ := filepath.Glob(filepath.Join(prefix, "lib", "python3*", "site-packages", "nvidia", "cudnn", "lib"))
	sort.SliceStable(matches, func(i, j int) bool {
		return pythonMinor(matches[i], prefix) > pythonMinor(matches[j], prefix)
	})
	out = append(out, matches...)
	return append(out, filepath.Join(prefix, "lib", "cudnn"))
}

// LocateCUDNN returns the first candidate that exists as a directory.
func LocateCUDNN(prefix, override, goos string) (string, bool) {
	for _, dir := range CUDNNCandidates(prefix, override, goos) {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// pythonMinor extracts N from <prefix>/lib/python3.N/...; unparsable names sort last.
func pythonMinor(path, prefix string) int {
	rel, err := filepath.Rel(filepath.Join(prefix, "lib"), path)
	if err != nil {
		return -1
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	minor, err := strconv.Atoi(strings.TrimPrefix(first, "python3."))
	if err != nil {
		return -1
	}
	return minor
}

// PrependPath puts dir at the front of the list held in name unless it is
// already an element. It reports whether the variable changed.
func PrependPath(env Environ, name, dir, sep string) (bool, error) {
	current, _ := env.LookupEnv(name)
	for _, element := range strings.Split(current, sep) {
		if element != "" && samePath(element, dir, sep == ";") {
			return false, nil
		}
	}
	value := dir
	if current != "" {
		value = dir + sep + current
	}
	if err := env.Setenv(name, value); err != nil {
		return false, err
	}
	return true, nil
}

func samePath(a, b string, foldCase bool) bool {
	a = strings.TrimRight(filepath.Clean(a), `/\`)
	b = strings.TrimRight(filepath.Clean(b), `/\`)
	if foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}
