package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dvdmaker/internal/preset"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List encoding presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defs := preset.NewCatalog(cfg.Presets).All()
			if asJSON {
				return writeJSON(cmd, defs)
			}
			rows := make([][]string, 0, len(defs))
			for _, def := range defs {
				video := "fit"
				if !def.NeedsFit() {
					video = strconv.Itoa(def.VideoBitrate(0))
				}
				marker := ""
				if def.ID == cfg.DVD.Preset {
					marker = "*"
				}
				rows = append(rows, []string{
					marker + def.ID,
					def.Name,
					video,
					fmt.Sprintf("%d-%d", def.Video.MinKbps, def.Video.MaxKbps),
					fmt.Sprintf("%s %d", def.Audio.Codec, def.Audio.BitrateKbps),
					yesNo(def.TwoPassEnabled()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Video kbps", "Range", "Audio", "Two-pass"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print presets as JSON")
	return cmd
}
