package compete

import (
	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/internal/metrics"
	"github.com/vexide/autons/route"
	"github.com/vexide/autons/selector"
)

// Hooks run around the match. Each hook is its own task and is cancelled
// like a route when the phase moves on. Nil hooks are skipped.
type Hooks[R any] struct {
	// BeforeRoute and AfterRoute wrap the committed route in autonomous.
	BeforeRoute route.Func[R]
	AfterRoute  route.Func[R]
	// Connected runs once when Run starts, before Disabled.
	Connected route.Func[R]
	// Disabled runs whenever the robot is disabled, including while the
	// route is being selected.
	Disabled route.Func[R]
	// Disconnected runs once when the phase source closes.
	Disconnected route.Func[R]
}

// Callbacks observe the lifecycle from its own goroutine. They must not
// block.
type Callbacks struct {
	OnPhase  func(Phase)
	OnState  func(State)
	OnCommit func(name string, sel selector.Selection)
}

type settings struct {
	driver    any
	hooks     any
	journal   *logbook.Logbook
	recorder  metrics.Recorder
	callbacks Callbacks
}

// Option configures a Lifecycle.
type Option func(*settings)

// WithDriver sets the callback run during driver control.
func WithDriver[R any](fn route.Func[R]) Option {
	return func(s *settings) { s.driver = fn }
}

// WithHooks sets the match hooks.
func WithHooks[R any](h Hooks[R]) Option {
	return func(s *settings) { s.hooks = h }
}

// WithLogbook writes transitions, commits and task outcomes to the match
// journal.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *settings) { s.journal = lb }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithCallbacks(c Callbacks) Option {
	return func(s *settings) { s.callbacks = c }
}
