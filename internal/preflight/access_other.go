//go:build !unix

package preflight

import (
	"os"
	"path/filepath"
)

// checkAccess probes writability by creating and removing a temp file.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".dvdmaker-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

func freeBytes(string) (uint64, bool, error) {
	return 0, false, nil
}
