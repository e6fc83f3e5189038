package fileutil

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// CopyFileMode copies src to dst with the given permission bits, replacing
// any existing dst. A partial dst is removed when the copy fails.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	_, err := copyFile(src, dst, mode, nil)
	return err
}

// CopyFileVerified copies src to dst and re-reads dst to confirm its size
// and SHA-256 match the source. dst is removed on any mismatch. It is used
// where a rename crossed filesystems and the source is about to be deleted.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	want := sha256.New()
	written, err := copyFile(src, dst, info.Mode().Perm(), want)
	if err != nil {
		return err
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s: wrote %d of %d bytes", src, written, info.Size())
	}
	got, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if string(got) != string(want.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy " + src + ": checksum mismatch")
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode, sum hash.Hash) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if srcInfo, statErr := in.Stat(); statErr == nil {
		if dstInfo, statErr := os.Stat(dst); statErr == nil && os.SameFile(srcInfo, dstInfo) {
			return 0, fmt.Errorf("copy %s: source and destination are the same file", src)
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	// OpenFile only applies mode on create; an existing dst keeps its bits.
	if err := out.Chmod(mode); err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("chmod %s: %w", dst, err)
	}
	var reader io.Reader = in
	if sum != nil {
		reader = io.TeeReader(in, sum)
	}
	written, err := io.Copy(out, reader)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return written, fmt.Errorf("copy %s: %w", src, err)
	}
	return written, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
