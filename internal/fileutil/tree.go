package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// CopyTree copies the directory src into dst recursively, preserving file
// permission bits. dst must not exist. Cancellation is checked between files.
// It returns the number of bytes copied.
func CopyTree(ctx context.Context, src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if _, err := os.Stat(dst); err == nil {
		return 0, fmt.Errorf("copy tree: destination %s already exists", dst)
	}

	var copied int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		entryInfo, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, entryInfo.Mode().Perm()|0o700)
		}
		if !entryInfo.Mode().IsRegular() {
			return nil
		}
		if err := CopyFileMode(path, target, entryInfo.Mode().Perm()); err != nil {
			return err
		}
		copied += entryInfo.Size()
		return nil
	})
	return copied, err
}

// MoveFile renames src to dst, replacing dst. When the rename crosses
// filesystems it falls back to a verified copy followed by removing src.
func MoveFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", dst, err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return false
}

// DirSize sums the sizes of regular files under dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
