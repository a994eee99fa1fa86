// cmd/autons/main.go
//
// Entry point for the autons CLI. `autons sim` runs a demo robot through a
// simulated match: the route selector is drawn in the terminal, and phases
// come from a scripted timeline or from the HTTP field bridge, which
// `autons field` drives from another terminal.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	project string
}

// projectDir resolves --project, defaulting to the working directory.
func (o *globalOptions) projectDir() (string, error) {
	dir := strings.TrimSpace(o.project)
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "autons",
		Short: "Autonomous route selection for competition robots",
		Long: `autons lets an operator pick an autonomous route on the robot's screen
while the robot is disabled, then runs that route when the field controller
switches to autonomous. This CLI simulates the brain screen and the field
controller so routes and selection can be rehearsed off the robot.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.project, "project", "p", "", "project directory (default is the current directory)")

	root.AddCommand(
		newInitCmd(opts),
		newSimCmd(opts),
		newFieldCmd(opts),
		newTimelineCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
