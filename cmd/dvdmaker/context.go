package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dvdmaker/internal/config"
	"dvdmaker/internal/jobstore"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
	"dvdmaker/internal/tools"
	"dvdmaker/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	toolsDirFlag *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, toolsDirFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		toolsDirFlag: toolsDirFlag,
		logLevelFlag: logLevelFlag,
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

// ensureConfig loads the configuration once and applies global flag
// overrides. The tools directory must be settled here because the tool
// resolver is bound to it when the manager is built.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if dir := flagValue(c.toolsDirFlag); dir != "" {
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Paths.ToolsDir = expanded
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*jobstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return jobstore.Open(cfg.HistoryPath())
}

func (c *commandContext) bootstrapper() (*tools.Bootstrapper, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return newBootstrapper(cfg, logger), nil
}

// newManager opens and claims the history store, marking jobs left
// unfinished by exited processes as cancelled, and builds a workflow
// manager. The claim is held until the returned cleanup runs.
func (c *commandContext) newManager(cmd *cobra.Command) (*workflow.Manager, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}
	if n, err := store.Claim(cmd.Context()); err != nil {
		logging.WarnWithContext(logger, "mark interrupted jobs failed", "history_repair_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale jobs may still show as running"),
		)
	} else if n > 0 {
		logger.Info("marked interrupted jobs", logging.Int64("count", n))
	}
	manager, err := workflow.NewManager(cfg, store, logger,
		workflow.WithTools(newBootstrapper(cfg, logger)))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return manager, func() { _ = store.Close() }, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// exitCode maps error kinds to process exit statuses so scripts can tell a
// bad request from a missing tool or a cancelled run.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case services.IsCancellation(err):
		return 130
	case errors.Is(err, services.ErrValidation):
		return 2
	case errors.Is(err, services.ErrToolMissing):
		return 3
	default:
		return 1
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
