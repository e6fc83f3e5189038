//go:build unix

package preflight

import "golang.org/x/sys/unix"

func checkAccess(path string) error {
	return unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK)
}

func freeBytes(path string) (uint64, bool, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), true, nil
}
