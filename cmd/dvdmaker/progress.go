package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
)

// progressRenderer draws a single rewritten status line on terminals and
// sampled plain lines everywhere else.
type progressRenderer struct {
	out     io.Writer
	live    bool
	quiet   bool
	sampler *logging.ProgressSampler
	width   int
}

func newProgressRenderer(out io.Writer, quiet bool) *progressRenderer {
	return &progressRenderer{
		out:     out,
		live:    isTerminal(out),
		quiet:   quiet,
		sampler: logging.NewProgressSampler(10),
	}
}

func (r *progressRenderer) Render(p job.Progress) {
	if r.quiet {
		return
	}
	line := formatProgress(p)
	if r.live {
		pad := ""
		if r.width > len(line) {
			pad = strings.Repeat(" ", r.width-len(line))
		}
		r.width = len(line)
		fmt.Fprintf(r.out, "\r%s%s", line, pad)
		return
	}
	if p.Stage.Terminal() || r.sampler.ShouldLog(p.Percent, string(p.Stage)) {
		fmt.Fprintln(r.out, line)
	}
}

// Close ends the live line so later output starts on a fresh row.
func (r *progressRenderer) Close() {
	if r.live && !r.quiet && r.width > 0 {
		fmt.Fprintln(r.out)
	}
}

func formatProgress(p job.Progress) string {
	line := fmt.Sprintf("[%5.1f%%] %-9s", p.Percent, p.Stage)
	if msg := strings.TrimSpace(p.Message); msg != "" {
		line += " " + msg
	}
	return line
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
