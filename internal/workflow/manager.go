package workflow

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"dvdmaker/internal/config"
	"dvdmaker/internal/iso"
	"dvdmaker/internal/jobstore"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
	"dvdmaker/internal/tools"
)

// ErrJobAlreadyRunning is returned when a job is submitted while another one
// has not finished.
var ErrJobAlreadyRunning = errors.New("a conversion job is already running")

// Manager coordinates conversion jobs using registered stage handlers.
type Manager struct {
	cfg    *config.Config
	store  *jobstore.Store
	logger *slog.Logger
	route  *jobRoute

	runner process.Runner
	tools  iso.Locator
	stages StageSet

	now func() time.Time

	mu     sync.Mutex
	active *Handle
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRunner replaces the process supervisor used by the default stages.
func WithRunner(runner process.Runner) ManagerOption {
	return func(m *Manager) { m.runner = runner }
}

// WithTools replaces the tool resolver/bootstrapper used by the default stages.
func WithTools(locator iso.Locator) ManagerOption {
	return func(m *Manager) { m.tools = locator }
}

// WithStages replaces the stage handlers. Nil entries fall back to defaults.
func WithStages(set StageSet) ManagerOption {
	return func(m *Manager) { m.stages = set }
}

// NewManager constructs a workflow manager. store may be nil, in which case
// no job history is recorded.
func NewManager(cfg *config.Config, store *jobstore.Store, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("workflow manager requires a config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	// Every component logs through base so records reach the active job log.
	route := newJobRoute(jobLogLevel(cfg.Logging.Level))
	base := logging.TeeLogger(logger, route)
	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(base, "workflow-manager"),
		route:  route,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runner == nil {
		m.runner = process.New(process.WithLogger(base))
	}
	if m.tools == nil {
		resolver := tools.NewResolver(cfg.Paths.ToolsDir, cfg.Tools.AllowPathLookup)
		m.tools = tools.NewBootstrapper(resolver, cfg.Tools.Downloads,
			time.Duration(cfg.Tools.DownloadTimeout)*time.Second,
			tools.WithBootstrapLogger(base))
	}
	if err := m.configureStages(base); err != nil {
		return nil, err
	}
	return m, nil
}

// Active returns the handle of the running job, if any.
func (m *Manager) Active() (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, false
	}
	return m.active, true
}

func (m *Manager) claim(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return ErrJobAlreadyRunning
	}
	m.active = h
	return nil
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	if m.active == h {
		m.active = nil
	}
	m.mu.Unlock()
}
