package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path and its parents with the given content.
func WriteFile(t testing.TB, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StubExecutable writes a shell script named name into dir that exits with
// code and returns its path.
func StubExecutable(t testing.TB, dir, name string, code int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteFile(t, path, fmt.Sprintf("#!/bin/sh\nexit %d\n", code), 0o755)
	return path
}

// StubScript writes an arbitrary shell script body into dir/name.
func StubScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteFile(t, path, "#!/bin/sh\n"+body, 0o755)
	return path
}
