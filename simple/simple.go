// Package simple implements a button-driven route selector that draws on a
// small text display, modelled on the V5 brain screen.
package simple

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/internal/metrics"
	"github.com/vexide/autons/route"
	"github.com/vexide/autons/selector"
)

// DefaultPollInterval matches the brain display refresh rate.
const DefaultPollInterval = time.Second / 60

// DefaultMaxDeviceFailures is the number of consecutive device faults
// tolerated before RunSelection gives up.
const DefaultMaxDeviceFailures = 5

var (
	// ErrLocked is returned when the highlight is changed after commit.
	ErrLocked = errors.New("simple: selection locked")
	// ErrNilDevice is returned when New is given a nil display or input.
	ErrNilDevice = errors.New("simple: nil device")
)

// State is a snapshot of the selection.
type State struct {
	Highlighted int
	Committed   int
	Locked      bool
	// Confirmed is set when the lock came from the operator rather than
	// from a cancelled selection window.
	Confirmed bool
}

type options struct {
	pollInterval time.Duration
	maxFailures  int
	initial      int
	theme        Theme
	journal      *logbook.Logbook
	recorder     metrics.Recorder
}

// Option configures a Select.
type Option func(*options)

// WithPollInterval sets how often the input is sampled.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxDeviceFailures sets how many consecutive display or input faults
// are skipped before the fault is reported.
func WithMaxDeviceFailures(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

// WithInitial highlights the route at index i when the selector opens.
func WithInitial(i int) Option {
	return func(o *options) { o.initial = i }
}

// WithTheme sets the colours used on displays that support them.
func WithTheme(t Theme) Option {
	return func(o *options) { o.theme = t }
}

// WithLogbook records commits and device faults in the match journal.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(o *options) { o.journal = lb }
}

// WithRecorder reports device faults to a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Select lets an operator cycle through a route table with Next and
// Previous and lock one in with Confirm. It implements selector.Selector.
type Select[R any] struct {
	table   *route.Table[R]
	names   []string
	display Display
	input   Input
	opts    options

	mu    sync.Mutex
	state State
	prev  Buttons
	dirty bool

	displayFailures int
	inputFailures   int
}

var _ selector.Selector = (*Select[struct{}])(nil)

// New builds a selector over table. The display and input belong to the
// selector until a route is committed.
func New[R any](display Display, input Input, table *route.Table[R], opts ...Option) (*Select[R], error) {
	if table == nil {
		return nil, &route.ConfigurationError{Field: "table", Reason: "is nil"}
	}
	if display == nil || input == nil {
		return nil, ErrNilDevice
	}
	o := options{
		pollInterval: DefaultPollInterval,
		maxFailures:  DefaultMaxDeviceFailures,
		theme:        ThemeDark,
		recorder:     metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.initial < 0 || o.initial >= table.Len() {
		return nil, fmt.Errorf("simple: initial route %d: %w", o.initial, route.ErrIndexOutOfRange)
	}
	return &Select[R]{
		table:   table,
		names:   table.Names(),
		display: display,
		input:   input,
		opts:    o,
		state:   State{Highlighted: o.initial, Committed: o.initial},
	}, nil
}

// Highlight returns the index currently under the cursor.
func (s *Select[R]) Highlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Highlighted
}

// State returns a snapshot of the selection.
func (s *Select[R]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetHighlight moves the cursor to index i. The display is redrawn on the
// next poll.
func (s *Select[R]) SetHighlight(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Locked {
		return ErrLocked
	}
	if i < 0 || i >= s.table.Len() {
		return fmt.Errorf("simple: highlight %d: %w", i, route.ErrIndexOutOfRange)
	}
	if s.state.Highlighted != i {
		s.state.Highlighted = i
		s.dirty = true
	}
	return nil
}

// RunSelection draws the route list and polls the input until the operator
// confirms or ctx is cancelled. On cancellation the highlighted route is
// committed unconfirmed. Once committed, later calls return the same
// selection without touching the devices.
func (s *Select[R]) RunSelection(ctx context.Context) (selector.Selection, error) {
	if sel, ok := s.committed(); ok {
		return sel, nil
	}
	if err := s.render(); err != nil {
		return selector.Selection{}, err
	}

	ticker := time.NewTicker(s.opts.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// A confirm seen in the same instant as the cancellation wins.
			if sel, ok := s.finalPoll(); ok {
				return sel, nil
			}
			return s.lock(false), nil
		case <-ticker.C:
			if ctx.Err() != nil {
				// Both cases were ready; edges after the cancellation must not move the highlight.
				if sel, ok := s.finalPoll(); ok {
					return sel, nil
				}
				return s.lock(false), nil
			}
			sel, done, err := s.poll()
			if err != nil {
				return selector.Selection{}, err
			}
			if done {
				return sel, nil
			}
		}
	}
}

func (s *Select[R]) committed() (selector.Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Locked {
		return selector.Selection{}, false
	}
	return selector.Selection{Index: s.state.Committed, Confirmed: s.state.Confirmed}, true
}

func (s *Select[R]) poll() (selector.Selection, bool, error) {
	buttons, err := s.input.Poll()
	if err != nil {
		return selector.Selection{}, false, s.fault(deviceInput, &s.inputFailures, err)
	}
	s.inputFailures = 0

	s.mu.Lock()
	next := buttons.Next && !s.prev.Next
	previous := buttons.Previous && !s.prev.Previous
	confirm := buttons.Confirm && !s.prev.Confirm
	s.prev = buttons

	if confirm {
		s.mu.Unlock()
		sel := s.lock(true)
		s.drawLocked()
		return sel, true, nil
	}

	n := s.table.Len()
	if next {
		s.state.Highlighted = (s.state.Highlighted + 1) % n
		s.dirty = true
	}
	if previous {
		s.state.Highlighted = (s.state.Highlighted - 1 + n) % n
		s.dirty = true
	}
	dirty := s.dirty
	s.mu.Unlock()

	if dirty {
		if err := s.render(); err != nil {
			return selector.Selection{}, false, err
		}
	}
	return selector.Selection{}, false, nil
}

// finalPoll samples the input once more after cancellation and reports
// whether it carried a confirm edge. Navigation edges are not applied.
func (s *Select[R]) finalPoll() (selector.Selection, bool) {
	buttons, err := s.input.Poll()
	if err != nil {
		return selector.Selection{}, false
	}
	s.mu.Lock()
	confirm := buttons.Confirm && !s.prev.Confirm
	s.prev = buttons
	s.mu.Unlock()
	if !confirm {
		return selector.Selection{}, false
	}
	sel := s.lock(true)
	s.drawLocked()
	return sel, true
}

func (s *Select[R]) lock(confirmed bool) selector.Selection {
	s.mu.Lock()
	s.state.Committed = s.state.Highlighted
	s.state.Locked = true
	s.state.Confirmed = confirmed
	s.dirty = false
	index := s.state.Committed
	s.mu.Unlock()

	name := s.names[index]
	if confirmed {
		s.opts.journal.Info("route %q confirmed (%d / %d)", name, index+1, s.table.Len())
	} else {
		s.opts.journal.Warn("selection interrupted, falling back to %q (%d / %d)", name, index+1, s.table.Len())
	}
	return selector.Selection{Index: index, Confirmed: confirmed}
}

// fault counts a consecutive device failure and returns a DeviceError once
// the limit is reached. Below the limit the failure is skipped.
func (s *Select[R]) fault(device string, counter *int, err error) error {
	*counter++
	s.opts.recorder.ObserveDeviceFault(device)
	s.opts.journal.Warn("%s fault %d/%d: %v", device, *counter, s.opts.maxFailures, err)
	if *counter < s.opts.maxFailures {
		return nil
	}
	return &DeviceError{Device: device, Failures: *counter, Err: err}
}
