package tools

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errBinaryNotFound = errors.New("binary not found in download")

// unpack extracts archive into dir when it is a zip or tarball and returns
// the path of the file named wanted. Anything else is treated as the binary
// itself.
func unpack(archive, dir, wanted string) (string, error) {
	lower := strings.ToLower(archive)
	var err error
	switch {
	case strings.HasSuffix(lower, ".zip"):
		err = extractZip(archive, dir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		err = extractTarGz(archive, dir)
	case strings.HasSuffix(lower, ".tar"):
		err = extractTarFile(archive, dir)
	default:
		return archive, nil
	}
	if err != nil {
		return "", err
	}
	return locateBinary(dir, wanted)
}

func extractZip(archive, dir string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file == nil {
			continue
		}
		target, ok, err := entryTarget(dir, file.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !file.Mode().IsRegular() {
			continue
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, src, file.Mode())
		closeErr := src.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

func extractTarGz(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()
	return extractTar(tar.NewReader(gz), dir)
}

func extractTarFile(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	return extractTar(tar.NewReader(f), dir)
}

func extractTar(reader *tar.Reader, dir string) error {
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, ok, err := entryTarget(dir, header.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, reader, fs.FileMode(header.Mode)&fs.ModePerm); err != nil {
				return err
			}
		}
	}
}

func entryTarget(dir, name string) (string, bool, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || clean == "" {
		return "", false, nil
	}
	target := filepath.Join(dir, clean)
	if filepath.IsAbs(clean) || !isWithinBaseDir(dir, target) {
		return "", false, fmt.Errorf("archive contains invalid path: %s", name)
	}
	return target, true, nil
}

func writeEntry(target string, src io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// locateBinary finds the shallowest file whose name matches wanted,
// ignoring case.
func locateBinary(dir, wanted string) (string, error) {
	best := ""
	bestDepth := -1
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), wanted) {
			return nil
		}
		depth := strings.Count(path, string(filepath.Separator))
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = path, depth
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if best == "" {
		return "", fmt.Errorf("%w: %s", errBinaryNotFound, wanted)
	}
	return best, nil
}

func isWithinBaseDir(baseDir, targetPath string) bool {
	relative, err := filepath.Rel(filepath.Clean(baseDir), filepath.Clean(targetPath))
	if err != nil {
		return false
	}
	return relative == "." || (relative != "" && relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)))
}
