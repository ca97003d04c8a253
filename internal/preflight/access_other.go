//go:build !unix

package preflight

import "os"

// accessReadWrite probes writability by creating a temporary file.
func accessReadWrite(path string) error {
	f, err := os.CreateTemp(path, ".mptx-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
