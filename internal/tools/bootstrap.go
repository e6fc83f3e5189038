package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dvdmaker/internal/config"
	"dvdmaker/internal/fileutil"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
)

const (
	lockRetryDelay  = 250 * time.Millisecond
	defaultTimeout  = 5 * time.Minute
	userAgentHeader = "dvdmaker"
)

// Bootstrapper installs missing non-core tools from configured downloads.
type Bootstrapper struct {
	resolver  *Resolver
	downloads map[string]config.Download
	client    *http.Client
	logger    *slog.Logger
}

// BootstrapOption customizes a Bootstrapper.
type BootstrapOption func(*Bootstrapper)

// WithHTTPClient overrides the download client.
func WithHTTPClient(client *http.Client) BootstrapOption {
	return func(b *Bootstrapper) {
		if client != nil {
			b.client = client
		}
	}
}

// WithBootstrapLogger attaches a logger.
func WithBootstrapLogger(logger *slog.Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBootstrapper returns a bootstrapper writing into the resolver's tools
// directory.
func NewBootstrapper(resolver *Resolver, downloads []config.Download, timeout time.Duration, opts ...BootstrapOption) *Bootstrapper {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	b := &Bootstrapper{
		resolver:  resolver,
		downloads: make(map[string]config.Download, len(downloads)),
		client:    &http.Client{Timeout: timeout},
		logger:    logging.NewNop(),
	}
	for _, d := range downloads {
		b.downloads[strings.ToLower(d.Name)] = d
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Resolver returns the resolver used to find installed tools.
func (b *Bootstrapper) Resolver() *Resolver { return b.resolver }

// Available reports whether name is installed or could be fetched.
func (b *Bootstrapper) Available(name string) bool {
	if _, ok := b.resolver.Find(name); ok {
		return true
	}
	_, ok := b.downloads[strings.ToLower(name)]
	return ok && !IsCore(name)
}

// Ensure returns the executable for name, fetching it first when it is
// missing and a download is configured. Concurrent callers for the same tool
// serialize on a lock file; the second caller finds the tool already present.
func (b *Bootstrapper) Ensure(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if path, ok := b.resolver.Find(name); ok {
		return path, nil
	}
	if IsCore(name) {
		_, err := b.resolver.Resolve(name)
		return "", err
	}
	download, ok := b.downloads[name]
	if !ok || strings.TrimSpace(download.URL) == "" {
		return "", services.ToolMissing("", name, "not installed and no download source configured")
	}
	return b.install(ctx, name, download)
}

func (b *Bootstrapper) install(ctx context.Context, name string, download config.Download) (string, error) {
	dir := b.resolver.Dir()
	if strings.TrimSpace(dir) == "" {
		return "", services.ToolMissing("", name, "no tools directory configured")
	}
	lockDir := filepath.Join(dir, ".locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return "", b.toolError(services.KindFilesystem, name, "create lock dir", err)
	}
	lock := flock.New(filepath.Join(lockDir, name+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if services.IsCancellation(err) || ctx.Err() != nil {
			return "", services.Cancelled("", ctx.Err())
		}
		return "", b.toolError(services.KindFilesystem, name, "acquire install lock", err)
	}
	if !locked {
		return "", services.Cancelled("", ctx.Err())
	}
	defer func() { _ = lock.Unlock() }()

	if path, ok := b.resolver.Find(name); ok {
		return path, nil
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%s-%s", name, uuid.NewString()))
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return "", b.toolError(services.KindFilesystem, name, "create temp dir", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	logger := logging.NewComponentLogger(b.logger, "tools").With(logging.String(logging.FieldTool, name))
	logger.Info("downloading tool", logging.String("url", download.URL))

	downloadDir := filepath.Join(tmp, "download")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return "", b.toolError(services.KindFilesystem, name, "create download dir", err)
	}
	archive := filepath.Join(downloadDir, archiveName(download.URL, name))
	if err := b.fetch(ctx, download.URL, archive); err != nil {
		if ctx.Err() != nil {
			return "", services.Cancelled("", ctx.Err())
		}
		return "", b.toolError(services.KindToolMissing, name, "download", err)
	}

	wanted := executableNameFor(name, b.resolver.goos)
	if binary := strings.TrimSpace(download.Binary); binary != "" && !strings.EqualFold(binary, name) {
		if filepath.Ext(binary) != "" {
			wanted = binary
		} else {
			wanted = executableNameFor(binary, b.resolver.goos)
		}
	}

	extractDir := filepath.Join(tmp, "extract")
	located, err := unpack(archive, extractDir, wanted)
	if err != nil {
		return "", b.toolError(services.KindToolMissing, name, "extract", err)
	}

	dest := filepath.Join(dir, executableNameFor(name, b.resolver.goos))
	staged := filepath.Join(tmp, "staged")
	if err := fileutil.CopyFileMode(located, staged, 0o755); err != nil {
		return "", b.toolError(services.KindFilesystem, name, "copy binary", err)
	}
	if err := os.Rename(staged, dest); err != nil {
		return "", b.toolError(services.KindFilesystem, name, "install binary", err)
	}
	logger.Info("tool installed", logging.String("path", dest))
	return dest, nil
}

func (b *Bootstrapper) fetch(ctx context.Context, sourceURL, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentHeader)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write download file: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close download file: %w", closeErr)
	}
	return nil
}

func (b *Bootstrapper) toolError(kind services.Kind, name, operation string, err error) error {
	return &services.Error{Kind: kind, Tool: name, Operation: operation, Message: "install " + name, Err: err}
}

func archiveName(rawURL, fallback string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fallback
}
