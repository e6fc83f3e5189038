package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
)

const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"

	defaultTailLines = 40
	defaultWaitDelay = 5 * time.Second
	maxLineBytes     = 1 << 20
)

// LineSink receives one line of tool output. Calls for a single stream are
// made in order from one goroutine; stdout and stderr are delivered
// concurrently.
type LineSink func(stream, line string)

// Tee fans a line out to every non-nil sink in order.
func Tee(sinks ...LineSink) LineSink {
	return func(stream, line string) {
		for _, sink := range sinks {
			if sink != nil {
				sink(stream, line)
			}
		}
	}
}

// Command describes one external tool invocation.
type Command struct {
	// Tool is the logical tool name used in errors and logs.
	Tool string
	// Path is the resolved executable. A bare name is looked up on PATH.
	Path string
	Args []string
	Dir  string
	// Env entries are appended to the current environment.
	Env           []string
	Sink          LineSink
	CaptureStdout bool
}

// Result reports how a process ended.
type Result struct {
	ExitCode int
	Stdout   []byte
	Tail     []string
	Duration time.Duration
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Option configures an Exec runner.
type Option func(*Exec)

// WithTailLines sets how many trailing output lines are kept for errors.
func WithTailLines(n int) Option {
	return func(e *Exec) {
		if n > 0 {
			e.tailLines = n
		}
	}
}

// WithWaitDelay bounds how long Run waits for output pipes to drain after the
// process has been killed.
func WithWaitDelay(d time.Duration) Option {
	return func(e *Exec) {
		if d > 0 {
			e.waitDelay = d
		}
	}
}

// WithLogger attaches a logger for launch and exit diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exec) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Exec runs commands as real operating system processes.
type Exec struct {
	tailLines int
	waitDelay time.Duration
	logger    *slog.Logger
}

// New constructs an Exec runner.
func New(opts ...Option) *Exec {
	e := &Exec{
		tailLines: defaultTailLines,
		waitDelay: defaultWaitDelay,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the command and blocks until it exits or ctx is cancelled.
func (e *Exec) Run(ctx context.Context, c Command) (Result, error) {
	tool := strings.TrimSpace(c.Tool)
	if tool == "" {
		tool = filepath.Base(c.Path)
	}
	path, err := locate(c.Path)
	if err != nil {
		return Result{ExitCode: -1}, services.ToolMissing("", tool, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, services.Cancelled("", err)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return killTree(cmd) }
	cmd.WaitDelay = e.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, services.Wrap(services.KindToolExecution, "", "stdout pipe", "launch "+tool, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, services.Wrap(services.KindToolExecution, "", "stderr pipe", "launch "+tool, err)
	}

	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("process starting",
		logging.String(logging.FieldTool, tool),
		logging.String("path", path),
		logging.Strings("args", c.Args),
	)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Result{ExitCode: -1}, services.ToolMissing("", tool, err.Error())
		}
		return Result{ExitCode: -1}, services.Wrap(services.KindToolExecution, "", "start", "launch "+tool, err)
	}

	tail := newTailBuffer(e.tailLines)
	var captured bytes.Buffer
	var stdoutReader io.Reader = stdout
	if c.CaptureStdout {
		stdoutReader = io.TeeReader(stdout, &captured)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	scan := func(r io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		scanner.Split(scanLines)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			tail.add(line)
			if c.Sink != nil {
				c.Sink(stream, line)
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
			once.Do(func() { scanErr = err })
			// Keep draining so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdoutReader, StreamStdout)
	go scan(stderr, StreamStderr)
	wg.Wait()

	waitErr := cmd.Wait()
	result := Result{
		ExitCode: exitCode(cmd, waitErr),
		Tail:     tail.lines(),
		Duration: time.Since(started),
	}
	if c.CaptureStdout {
		result.Stdout = captured.Bytes()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("process killed after cancellation",
			logging.String(logging.FieldTool, tool),
			logging.Duration("elapsed", result.Duration),
		)
		return result, services.Cancelled("", ctxErr)
	}

	logger.Debug("process exited",
		logging.String(logging.FieldTool, tool),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("elapsed", result.Duration),
	)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return result, services.ToolFailed("", tool, result.ExitCode, result.Tail, nil)
		}
		return result, services.ToolFailed("", tool, result.ExitCode, result.Tail, waitErr)
	}
	if scanErr != nil {
		return result, services.Wrap(services.KindToolExecution, "", "read output", tool, scanErr)
	}
	return result, nil
}

func locate(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("no executable configured")
	}
	if !strings.ContainsRune(path, os.PathSeparator) && !strings.ContainsRune(path, '/') {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("executable %q not found on PATH", path)
		}
		return resolved, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("executable %q not found", path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("executable %q is a directory", path)
	}
	return path, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// scanLines splits on \n, \r\n and bare \r so carriage-return progress
// updates from encoders arrive as separate lines.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			return 0, nil, nil
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == t.limit {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:t.limit-1]
	}
	t.buf = append(t.buf, line)
}

func (t *tailBuffer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}
