package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dvdmaker/internal/config"
	"dvdmaker/internal/tools"
	"dvdmaker/internal/workflow"
)

func newBootstrapper(cfg *config.Config, logger *slog.Logger) *tools.Bootstrapper {
	resolver := tools.NewResolver(cfg.Paths.ToolsDir, cfg.Tools.AllowPathLookup)
	return tools.NewBootstrapper(resolver, cfg.Tools.Downloads,
		time.Duration(cfg.Tools.DownloadTimeout)*time.Second,
		tools.WithBootstrapLogger(logger))
}

func newToolsCommand(ctx *commandContext) *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and install helper tools",
	}
	toolsCmd.AddCommand(newToolsStatusCommand(ctx))
	toolsCmd.AddCommand(newToolsInstallCommand(ctx))
	return toolsCmd
}

func newToolsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where each tool resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.bootstrapper()
			if err != nil {
				return err
			}
			statuses := tools.Check(b, tools.Known())
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "missing"
				switch {
				case s.Available:
					state = "ok"
				case s.Fetchable:
					state = "fetchable"
				case s.Optional:
					state = "optional"
				}
				detail := s.Path
				if detail == "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, state, s.Description, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tools directory: %s\n", b.Resolver().Dir())
			fmt.Fprintln(out, renderTable([]string{"Tool", "Status", "Purpose", "Location"}, rows, nil))

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			manager, err := workflow.NewManager(cfg, nil, logger, workflow.WithTools(b))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Stages:")
			for _, h := range manager.Health(cmd.Context()) {
				state := "ready"
				if !h.Ready {
					state = "not ready: " + h.Detail
				}
				fmt.Fprintf(out, "  %-10s %s\n", h.Name, state)
			}
			return nil
		},
	}
}

func newToolsInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install [tool]...",
		Short: "Download missing non-core tools that have a configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.bootstrapper()
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				for _, req := range tools.Known() {
					if !tools.IsCore(req.Name) && b.Available(req.Name) {
						names = append(names, req.Name)
					}
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to install; configure [[tools.download]] entries first")
				return nil
			}
			var failures []error
			for _, name := range names {
				name = strings.ToLower(strings.TrimSpace(name))
				path, err := b.Ensure(cmd.Context(), name)
				if err != nil {
					failures = append(failures, err)
					fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, path)
			}
			return errors.Join(failures...)
		},
	}
}
