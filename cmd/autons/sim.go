package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vexide/autons/compete"
	"github.com/vexide/autons/internal/config"
	"github.com/vexide/autons/internal/fieldbridge"
	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/internal/logging"
	"github.com/vexide/autons/internal/metrics"
	"github.com/vexide/autons/internal/timeline"
	"github.com/vexide/autons/internal/tui"
	"github.com/vexide/autons/simple"
)

const (
	sourceTimeline = "timeline"
	sourceBridge   = "bridge"
)

type simOptions struct {
	source   string
	timeline string
	speed    float64
}

func newSimCmd(global *globalOptions) *cobra.Command {
	opts := &simOptions{}
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the demo robot through a simulated match",
		Long: `Run the demo robot with the route selector drawn in the terminal.

Use the arrow keys to move through routes and enter to lock one in. Phases
come from a timeline in .autons/timelines (--source timeline) or from the
HTTP field bridge (--source bridge), driven with 'autons field'.

Examples:
  autons sim
  autons sim --timeline skills --speed 2
  autons sim --source bridge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := global.projectDir()
			if err != nil {
				return err
			}
			return runSim(cmd.Context(), dir, opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", sourceTimeline, "phase source: timeline or bridge")
	cmd.Flags().StringVar(&opts.timeline, "timeline", "", "timeline name or file (default from .autons/config.yaml)")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "playback speed for the timeline and the demo robot")
	return cmd
}

// phaseSource is a compete.Source plus the goroutine that feeds it.
type phaseSource struct {
	compete.Source
	label string
	run   func(ctx context.Context) error
}

func runSim(ctx context.Context, projectDir string, opts *simOptions) error {
	if err := config.InitDir(projectDir); err != nil {
		return fmt.Errorf("sim: init project: %w", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return err
	}
	defer logger.Close()
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(reg)

	robot := newDemoRobot(journal.Scope("robot"), opts.speed)
	table, err := demoRoutes()
	if err != nil {
		return err
	}

	selCfg := cfg.Project.Selector
	theme, err := simple.ThemeByName(selCfg.Theme)
	if err != nil {
		return err
	}
	initial := 0
	if name := selCfg.DefaultRoute; name != "" {
		idx, ok := table.Index(name)
		if !ok {
			return fmt.Errorf("sim: default_route %q is not one of %s", name, strings.Join(table.Names(), ", "))
		}
		initial = idx
	}

	screen := tui.NewScreen(tui.BrainWidth, tui.BrainHeight)
	buttons := &tui.Buttons{}
	sel, err := simple.New(screen, buttons, table,
		simple.WithPollInterval(selCfg.PollInterval),
		simple.WithMaxDeviceFailures(selCfg.MaxDeviceFailures),
		simple.WithInitial(initial),
		simple.WithTheme(theme),
		simple.WithLogbook(journal.Scope("selector")),
		simple.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := buildSource(ctx, cfg, opts, logger, reg)
	if err != nil {
		return err
	}
	simLog := logger.With("sim")
	simLog.Printf("%d routes, source %s", table.Len(), source.label)
	journal.Info("session opened · %d routes · %s", table.Len(), source.label)

	app := tui.NewApp(screen, buttons,
		tui.WithLogbook(journal),
		tui.WithSourceLabel(source.label),
		tui.WithSelector(sel, table.Names()),
	)
	program := tea.NewProgram(app, tea.WithAltScreen())
	forward := tui.NewForwarder(tui.DefaultForwardBuffer)
	screen.OnChange(tui.ScreenNotifier(forward.Send))

	var matchErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = forward.Run(gctx, program.Send)
		if n := forward.Dropped(); n > 0 {
			simLog.Printf("ui fell behind, dropped %d updates", n)
		}
		return nil
	})
	g.Go(func() error {
		if err := source.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := compete.Run(gctx, robot, table, sel, source,
			compete.WithDriver(robot.driverControl),
			compete.WithHooks(robot.hooks()),
			compete.WithLogbook(journal),
			compete.WithRecorder(recorder),
			compete.WithCallbacks(tui.Callbacks(forward.Send)),
		)
		program.Send(tui.Finished(err))
		if err != nil && !errors.Is(err, context.Canceled) {
			simLog.Printf("match ended with error: %v", err)
			matchErr = err
		}
		return nil
	})
	g.Go(func() error {
		_, err := program.Run()
		cancel()
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return matchErr
}

func buildSource(ctx context.Context, cfg *config.Config, opts *simOptions, logger *logging.Logger, reg *prometheus.Registry) (*phaseSource, error) {
	switch strings.ToLower(strings.TrimSpace(opts.source)) {
	case sourceTimeline:
		file, err := timeline.LoadFile(cfg.TimelinePath(opts.timeline))
		if err != nil {
			return nil, err
		}
		player := timeline.NewPlayer(file.Timeline, timeline.WithLogger(logger), timeline.WithSpeed(opts.speed))
		return &phaseSource{
			Source: player,
			label:  "timeline " + file.Timeline.Name,
			run:    player.Play,
		}, nil

	case sourceBridge:
		settings := fieldbridge.SettingsFromConfig(cfg)
		if !settings.Enabled {
			return nil, fmt.Errorf("sim: field bridge disabled in %s", cfg.ProjectConfigPath())
		}
		feed := fieldbridge.NewFeed(fieldbridge.FeedWithLogger(logger))
		srv := fieldbridge.NewServer(settings,
			fieldbridge.WithProcessor(feed),
			fieldbridge.WithLogger(logger),
			fieldbridge.WithGatherer(reg),
		)
		if err := srv.Start(ctx); err != nil {
			return nil, err
		}
		return &phaseSource{
			Source: feed,
			label:  "bridge " + srv.BaseURL(),
			run: func(ctx context.Context) error {
				<-ctx.Done()
				feed.Close()
				return srv.Shutdown(context.Background())
			},
		}, nil

	default:
		return nil, fmt.Errorf("sim: unknown source %q (want %s or %s)", opts.source, sourceTimeline, sourceBridge)
	}
}
