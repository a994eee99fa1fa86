package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vexide/autons/internal/config"
	"github.com/vexide/autons/internal/timeline"
)

func newTimelineCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Inspect scripted match timelines",
	}
	cmd.AddCommand(newTimelineValidateCmd(), newTimelineListCmd(opts))
	return cmd
}

func newTimelineValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate timeline files",
		Long: `Validate one or more timeline YAML files.

The exit code indicates the result:
  0 - every file is valid
  1 - at least one file could not be parsed or failed validation`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				file, err := timeline.LoadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					continue
				}
				tl := file.Timeline
				fmt.Fprintf(out, "ok   %s: %s, %d steps, %s\n", path, tl.Name, len(tl.Steps), tl.Total())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d timelines invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newTimelineListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's timelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := opts.projectDir()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(dir)
			if err != nil {
				return err
			}
			files, err := timeline.LoadDir(cfg.TimelinesDir())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no timelines found; run 'autons init'")
			}
			out := cmd.OutOrStdout()
			for _, file := range files {
				marker := " "
				if file.Timeline.Name == cfg.DefaultTimeline() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-12s %8s  %s\n", marker, file.Timeline.Name, file.Timeline.Total(), file.Timeline.Description)
			}
			return nil
		},
	}
}
