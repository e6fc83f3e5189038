package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dvdmaker/internal/textutil"
)

// Workspace is the per-job directory tree under the working directory. The
// orchestrator owns it; stages only receive paths from it.
type Workspace struct {
	Root string
}

// NewWorkspace names the workspace job_<yyyymmdd-hhmmss>_<first 8 of id>.
func NewWorkspace(workDir, id string, now time.Time) Workspace {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("job_%s_%s", now.Format("20060102-150405"), short)
	return Workspace{Root: filepath.Join(workDir, name)}
}

func (w Workspace) TranscodedDir() string { return filepath.Join(w.Root, "transcoded") }
func (w Workspace) DVDRoot() string       { return filepath.Join(w.Root, "dvdroot") }
func (w Workspace) VideoTS() string       { return filepath.Join(w.DVDRoot(), "VIDEO_TS") }
func (w Workspace) ImageDir() string      { return filepath.Join(w.Root, "image") }
func (w Workspace) PassLogDir() string    { return filepath.Join(w.Root, "passlog") }
func (w Workspace) AuthorXML() string     { return filepath.Join(w.Root, "dvdauthor.xml") }

// TranscodedPath returns NNN_<stem>.mpg for the index-th source (zero based).
func (w Workspace) TranscodedPath(index int, source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(w.TranscodedDir(), fmt.Sprintf("%03d_%s.mpg", index+1, textutil.SanitizeToken(stem)))
}

// PassLogPrefix returns the ffmpeg -passlogfile prefix for a source.
func (w Workspace) PassLogPrefix(index int) string {
	return filepath.Join(w.PassLogDir(), fmt.Sprintf("%03d", index+1))
}

// Create makes the workspace directories.
func (w Workspace) Create() error {
	for _, dir := range []string{w.Root, w.TranscodedDir(), w.ImageDir(), w.PassLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace %s: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes the workspace tree.
func (w Workspace) Remove() error {
	if strings.TrimSpace(w.Root) == "" {
		return nil
	}
	return os.RemoveAll(w.Root)
}
