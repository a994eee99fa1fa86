package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vexide/autons/compete"
	"github.com/vexide/autons/internal/config"
	"github.com/vexide/autons/internal/fieldbridge"
)

func newFieldCmd(opts *globalOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "field PHASE",
		Short: "Send a phase to a running simulator's field bridge",
		Long: `Act as the field controller for a simulator started with
'autons sim --source bridge'.

PHASE is one of disabled, autonomous, driver or disconnect.

Examples:
  autons field autonomous
  autons field driver --url http://127.0.0.1:9000
  autons field disconnect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(url) == "" {
				dir, err := opts.projectDir()
				if err != nil {
					return err
				}
				cfg, err := config.NewConfig(dir)
				if err != nil {
					return err
				}
				url = fieldbridge.SettingsFromConfig(cfg).URL()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return sendField(ctx, fieldbridge.NewClient(url), args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "bridge base URL (default from .autons/config.yaml)")
	return cmd
}

func sendField(ctx context.Context, client *fieldbridge.Client, arg string, cmd *cobra.Command) error {
	if strings.EqualFold(strings.TrimSpace(arg), string(fieldbridge.TypeDisconnect)) {
		if err := client.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sent disconnect")
		return nil
	}
	phase, err := compete.ParsePhase(arg)
	if err != nil {
		return err
	}
	if err := client.Send(ctx, phase); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", phase)
	return nil
}
