package timeline

import (
	"context"
	"time"

	"github.com/vexide/autons/compete"
)

// Logger matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// PlayerOption customizes a Player.
type PlayerOption func(*Player)

// WithLogger reports each step as it starts.
func WithLogger(l Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

// WithSpeed scales playback; 2 plays twice as fast.
func WithSpeed(factor float64) PlayerOption {
	return func(p *Player) {
		if factor > 0 {
			p.speed = factor
		}
	}
}

// WithOnStep is called as each step's phase is delivered.
func WithOnStep(fn func(index int, step Step)) PlayerOption {
	return func(p *Player) { p.onStep = fn }
}

// Player replays a timeline as a compete.Source.
type Player struct {
	timeline Timeline
	ch       chan compete.Phase
	logger   Logger
	speed    float64
	onStep   func(int, Step)
}

var _ compete.Source = (*Player)(nil)

// NewPlayer prepares tl for playback. Nothing is emitted until Play runs.
func NewPlayer(tl Timeline, opts ...PlayerOption) *Player {
	p := &Player{
		timeline: tl,
		ch:       make(chan compete.Phase, 1),
		speed:    1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Phases implements compete.Source.
func (p *Player) Phases() <-chan compete.Phase {
	return p.ch
}

// Play emits each step's phase and waits out its duration. When the script
// ends the channel is closed, which reads as a disconnect, unless the
// timeline holds; then it stays open until ctx is done. Play runs once.
func (p *Player) Play(ctx context.Context) error {
	defer close(p.ch)
	for i, step := range p.timeline.Steps {
		select {
		case p.ch <- step.Phase:
		case <-ctx.Done():
			return ctx.Err()
		}
		if p.logger != nil {
			p.logger.Printf("timeline %s: step %d/%d %s for %s", p.timeline.Name, i+1, len(p.timeline.Steps), step.Phase, step.Duration)
		}
		if p.onStep != nil {
			p.onStep(i, step)
		}
		if err := p.wait(ctx, step.Duration); err != nil {
			return err
		}
	}
	if p.timeline.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *Player) wait(ctx context.Context, d time.Duration) error {
	scaled := time.Duration(float64(d) / p.speed)
	if scaled <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(scaled)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
