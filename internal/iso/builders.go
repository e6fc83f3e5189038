// Package iso builds a DVD-Video ISO image from the authored tree using the
// first available image builder.
package iso

import (
	"fmt"
	"strings"

	"dvdmaker/internal/tools"
)

// Builder describes the command line dialect of one image tool.
type Builder interface {
	Name() string
	Args(root, out, label string) []string
}

type imgBurn struct{}

func (imgBurn) Name() string { return tools.ImgBurn }

func (imgBurn) Args(root, out, label string) []string {
	return []string{
		"/MODE", "BUILD",
		"/BUILDINPUTMODE", "STANDARD",
		"/BUILDOUTPUTMODE", "IMAGEFILE",
		"/SRC", root,
		"/DEST", out,
		"/FILESYSTEM", "ISO9660 + UDF",
		"/UDFREVISION", "1.02",
		"/VOLUMELABEL", label,
		"/CLOSE", "/NOIMAGEDETAILS", "/NOSAVESETTINGS", "/START",
	}
}

type xorriso struct{}

func (xorriso) Name() string { return tools.Xorriso }

func (xorriso) Args(root, out, label string) []string {
	return []string{"-as", "mkisofs", "-dvd-video", "-V", label, "-o", out, root}
}

// mkisofs covers mkisofs and its genisoimage fork, which share flags.
type mkisofs struct{ name string }

func (m mkisofs) Name() string { return m.name }

func (mkisofs) Args(root, out, label string) []string {
	return []string{"-dvd-video", "-udf", "-V", label, "-o", out, root}
}

// Lookup returns the builder for a tool name.
func Lookup(name string) (Builder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case tools.ImgBurn:
		return imgBurn{}, nil
	case tools.Xorriso:
		return xorriso{}, nil
	case tools.Mkisofs:
		return mkisofs{name: tools.Mkisofs}, nil
	case tools.Genisoimage:
		return mkisofs{name: tools.Genisoimage}, nil
	default:
		return nil, fmt.Errorf("unknown ISO builder %q", name)
	}
}

// Order resolves a preference list into builders, skipping duplicates.
func Order(names []string) ([]Builder, error) {
	builders := make([]Builder, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		b, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[b.Name()]; dup {
			continue
		}
		seen[b.Name()] = struct{}{}
		builders = append(builders, b)
	}
	return builders, nil
}
