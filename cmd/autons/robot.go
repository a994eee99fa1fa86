package main

import (
	"context"
	"sync"
	"time"

	"github.com/vexide/autons/compete"
	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/route"
)

// demoRobot stands in for real hardware. Motions are timed waits that stop
// as soon as the context is cancelled.
type demoRobot struct {
	journal *logbook.Logbook
	scale   float64

	mu      sync.Mutex
	heading float64
	scored  int
}

func newDemoRobot(journal *logbook.Logbook, speed float64) *demoRobot {
	if speed <= 0 {
		speed = 1
	}
	return &demoRobot{journal: journal, scale: 1 / speed}
}

func (r *demoRobot) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(time.Duration(float64(d) * r.scale))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *demoRobot) drive(ctx context.Context, inches float64) error {
	r.journal.Info("drive %.0fin", inches)
	return r.wait(ctx, time.Duration(inches*40)*time.Millisecond)
}

func (r *demoRobot) turn(ctx context.Context, degrees float64) error {
	r.journal.Info("turn %.0f°", degrees)
	if err := r.wait(ctx, time.Duration(abs(degrees)*5)*time.Millisecond); err != nil {
		return err
	}
	r.mu.Lock()
	r.heading += degrees
	r.mu.Unlock()
	return nil
}

func (r *demoRobot) score(ctx context.Context) error {
	if err := r.wait(ctx, 600*time.Millisecond); err != nil {
		return err
	}
	r.mu.Lock()
	r.scored++
	n := r.scored
	r.mu.Unlock()
	r.journal.Info("scored (%d total)", n)
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func leftSide(ctx context.Context, r *demoRobot) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return r.drive(ctx, 24) },
		func(ctx context.Context) error { return r.turn(ctx, -90) },
		func(ctx context.Context) error { return r.drive(ctx, 12) },
		r.score,
	}
	return runSteps(ctx, steps)
}

func rightSide(ctx context.Context, r *demoRobot) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return r.drive(ctx, 24) },
		func(ctx context.Context) error { return r.turn(ctx, 90) },
		func(ctx context.Context) error { return r.drive(ctx, 12) },
		r.score,
	}
	return runSteps(ctx, steps)
}

// skills keeps scoring until the phase ends.
func skills(ctx context.Context, r *demoRobot) error {
	for {
		if err := r.drive(ctx, 36); err != nil {
			return err
		}
		if err := r.score(ctx); err != nil {
			return err
		}
		if err := r.turn(ctx, 180); err != nil {
			return err
		}
	}
}

func doNothing(context.Context, *demoRobot) error {
	return nil
}

func runSteps(ctx context.Context, steps []func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func demoRoutes() (*route.Table[*demoRobot], error) {
	return route.NewTable(
		route.New("Left Side", leftSide),
		route.New("Right Side", rightSide),
		route.Named(skills),
		route.New("Do Nothing", doNothing),
	)
}

func (r *demoRobot) driverControl(ctx context.Context, _ *demoRobot) error {
	r.journal.Info("driver control")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *demoRobot) hooks() compete.Hooks[*demoRobot] {
	return compete.Hooks[*demoRobot]{
		BeforeRoute: func(ctx context.Context, r *demoRobot) error {
			r.journal.Info("calibrating imu")
			return r.wait(ctx, 300*time.Millisecond)
		},
		AfterRoute: func(_ context.Context, r *demoRobot) error {
			r.mu.Lock()
			heading, scored := r.heading, r.scored
			r.mu.Unlock()
			r.journal.Info("route done: heading %.0f°, %d scored", heading, scored)
			return nil
		},
		Connected: func(context.Context, *demoRobot) error {
			r.journal.Info("field controller connected")
			return nil
		},
		Disabled: func(context.Context, *demoRobot) error {
			r.journal.Info("motors braked")
			return nil
		},
		Disconnected: func(context.Context, *demoRobot) error {
			r.journal.Warn("controller lost, holding position")
			return nil
		},
	}
}
