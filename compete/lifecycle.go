// Package compete drives a robot through a competition match: it lets the
// operator pick an autonomous route while disabled, then runs the route,
// the driver callback and the hooks as the field controller changes phase.
package compete

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vexide/autons/internal/logbook"
	"github.com/vexide/autons/internal/metrics"
	"github.com/vexide/autons/route"
	"github.com/vexide/autons/selector"
)

// Lifecycle races route selection against the field controller and runs one
// task at a time against the robot. A Lifecycle runs once.
type Lifecycle[R any] struct {
	robot    R
	table    *route.Table[R]
	sel      selector.Selector
	source   Source
	driver   route.Func[R]
	hooks    Hooks[R]
	journal  *logbook.Logbook
	recorder metrics.Recorder
	cb       Callbacks
	runID    string

	mu        sync.Mutex
	state     State
	phase     Phase
	committed selector.Selection
	route     route.Route[R]
	locked    bool
	started   bool
}

// Run builds a lifecycle and runs it until the source closes, ctx is
// cancelled or a task fails.
func Run[R any](ctx context.Context, robot R, table *route.Table[R], sel selector.Selector, source Source, opts ...Option) error {
	lc, err := New(robot, table, sel, source, opts...)
	if err != nil {
		return err
	}
	return lc.Run(ctx)
}

// New validates the parts of a lifecycle without starting it.
func New[R any](robot R, table *route.Table[R], sel selector.Selector, source Source, opts ...Option) (*Lifecycle[R], error) {
	if table == nil {
		return nil, &route.ConfigurationError{Field: "table", Reason: "is nil"}
	}
	if sel == nil {
		return nil, ErrNilSelector
	}
	if source == nil {
		return nil, ErrNilSource
	}
	s := settings{recorder: metrics.Nop{}}
	for _, opt := range opts {
		opt(&s)
	}
	lc := &Lifecycle[R]{
		robot:    robot,
		table:    table,
		sel:      sel,
		source:   source,
		journal:  s.journal.Scope("compete"),
		recorder: s.recorder,
		cb:       s.callbacks,
		runID:    uuid.NewString(),
		phase:    PhaseDisabled,
	}
	if s.driver != nil {
		fn, ok := s.driver.(route.Func[R])
		if !ok {
			return nil, fmt.Errorf("compete: driver %T does not match robot type %T", s.driver, robot)
		}
		lc.driver = fn
	}
	if s.hooks != nil {
		h, ok := s.hooks.(Hooks[R])
		if !ok {
			return nil, fmt.Errorf("compete: hooks %T do not match robot type %T", s.hooks, robot)
		}
		lc.hooks = h
	}
	return lc, nil
}

// RunID identifies this run in the match journal.
func (l *Lifecycle[R]) RunID() string {
	return l.runID
}

func (l *Lifecycle[R]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle[R]) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Committed returns the locked selection once there is one.
func (l *Lifecycle[R]) Committed() (selector.Selection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committed, l.locked
}

type selectionResult struct {
	sel selector.Selection
	err error
}

// Run blocks for the whole match. It returns nil when the source closes,
// ctx.Err() when ctx is cancelled, a selector error if the selector gives
// up, or a *TaskError when a route, the driver or a hook fails.
func (l *Lifecycle[R]) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("compete: lifecycle already ran")
	}
	l.started = true
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.setState(StateFinished)

	l.journal.Info("run %s started with %d routes", l.runID, l.table.Len())
	phases := l.source.Phases()

	current, connected, err := l.awaitSelection(ctx, phases)
	if err != nil {
		return err
	}
	if !connected {
		return l.disconnect(ctx)
	}
	return l.match(ctx, phases, current)
}

// awaitSelection runs the selector until it commits or the field leaves
// Disabled, whichever comes first. Meanwhile the Connected hook and then the
// Disabled hook run against the robot; the selector never touches it. The
// hook task still running at commit is returned for match to carry on. It
// reports false if the source closed.
func (l *Lifecycle[R]) awaitSelection(ctx context.Context, phases <-chan Phase) (*task, bool, error) {
	l.setState(StateAwaitingSelection)

	selCtx, stop := context.WithCancel(ctx)
	defer stop()
	results := make(chan selectionResult, 1)
	go func() {
		sel, err := l.sel.RunSelection(selCtx)
		results <- selectionResult{sel: sel, err: err}
	}()

	var current *task
	if h := l.hooks.Connected; h != nil {
		current = l.start(ctx, KindConnected, "", l.bind(h))
	} else {
		current = l.startDisabled(ctx)
	}

	for {
		var done <-chan error
		if current != nil {
			done = current.done
		}

		select {
		case <-ctx.Done():
			stop()
			<-results
			l.stop(current)
			return nil, false, ctx.Err()
		case err := <-done:
			t := current
			current = nil
			if err := l.finish(t, err); err != nil {
				stop()
				<-results
				return nil, false, err
			}
			if t.kind == KindConnected {
				current = l.startDisabled(ctx)
			}
		case res := <-results:
			if err := l.commit(res); err != nil {
				l.stop(current)
				return nil, false, err
			}
			return current, true, nil
		case p, ok := <-phases:
			if !ok {
				stop()
				err := l.commit(<-results)
				if serr := l.stop(current); err == nil {
					err = serr
				}
				return nil, false, err
			}
			if !l.observePhase(p) || p == PhaseDisabled {
				continue
			}
			l.journal.Info("%s started before selection, using highlight", p)
			stop()
			if err := l.stop(current); err != nil {
				<-results
				return nil, false, err
			}
			return nil, true, l.commit(<-results)
		}
	}
}

func (l *Lifecycle[R]) commit(res selectionResult) error {
	if res.err != nil {
		l.journal.Error("selection failed: %v", res.err)
		return fmt.Errorf("compete: selection: %w", res.err)
	}
	r, err := l.table.At(res.sel.Index)
	if err != nil {
		return fmt.Errorf("compete: selector committed: %w", err)
	}

	l.mu.Lock()
	l.committed = res.sel
	l.route = r
	l.locked = true
	l.mu.Unlock()

	l.journal.Info("committed %q (%s)", r.Name, res.sel)
	l.recorder.ObserveCommit(r.Name, res.sel.Confirmed)
	if l.cb.OnCommit != nil {
		l.cb.OnCommit(r.Name, res.sel)
	}
	l.setState(StateSelectionLocked)
	return nil
}

// match follows the phase source once the route is locked. current is a
// hook task carried over from the selection window, if any.
func (l *Lifecycle[R]) match(ctx context.Context, phases <-chan Phase, current *task) error {
	if p := l.Phase(); current == nil && p != PhaseDisabled {
		current = l.enter(ctx, p)
	}

	for {
		var done <-chan error
		if current != nil {
			done = current.done
		}

		select {
		case <-ctx.Done():
			l.stop(current)
			return ctx.Err()
		case err := <-done:
			t := current
			current = nil
			if err := l.finish(t, err); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			switch t.kind {
			case KindConnected:
				current = l.startDisabled(ctx)
			case KindDisabled:
			default:
				l.setState(StateIdle)
			}
		case p, ok := <-phases:
			if !ok {
				if err := l.stop(current); err != nil {
					return err
				}
				return l.disconnect(ctx)
			}
			if !l.observePhase(p) {
				continue
			}
			if err := l.stop(current); err != nil {
				return err
			}
			current = l.enter(ctx, p)
		}
	}
}

// enter starts the task for phase p, or idles if there is none.
func (l *Lifecycle[R]) enter(ctx context.Context, p Phase) *task {
	switch p {
	case PhaseAutonomous:
		l.mu.Lock()
		r := l.route
		l.mu.Unlock()
		l.setState(StateRunningAutonomous)
		return l.start(ctx, KindAutonomous, r.Name, l.autonomous(r))
	case PhaseDriverControl:
		if l.driver == nil {
			l.setState(StateIdle)
			return nil
		}
		l.setState(StateRunningDriver)
		return l.start(ctx, KindDriver, "", l.bind(l.driver))
	default:
		l.setState(StateIdle)
		return l.startDisabled(ctx)
	}
}

func (l *Lifecycle[R]) startDisabled(ctx context.Context) *task {
	if l.hooks.Disabled == nil {
		return nil
	}
	return l.start(ctx, KindDisabled, "", l.bind(l.hooks.Disabled))
}

func (l *Lifecycle[R]) autonomous(r route.Route[R]) func(context.Context) error {
	return func(ctx context.Context) error {
		if h := l.hooks.BeforeRoute; h != nil {
			if err := h(ctx, l.robot); err != nil {
				return fmt.Errorf("before route: %w", err)
			}
		}
		if err := r.Run(ctx, l.robot); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if h := l.hooks.AfterRoute; h != nil {
			if err := h(ctx, l.robot); err != nil {
				return fmt.Errorf("after route: %w", err)
			}
		}
		return nil
	}
}

func (l *Lifecycle[R]) bind(fn route.Func[R]) func(context.Context) error {
	return func(ctx context.Context) error {
		return fn(ctx, l.robot)
	}
}

func (l *Lifecycle[R]) disconnect(ctx context.Context) error {
	l.journal.Warn("controller disconnected")
	h := l.hooks.Disconnected
	if h == nil {
		return nil
	}
	t := l.start(ctx, KindDisconnected, "", l.bind(h))
	if err := l.finish(t, <-t.done); err != nil {
		return err
	}
	return ctx.Err()
}

// observePhase records p and reports whether it differs from the last
// phase seen.
func (l *Lifecycle[R]) observePhase(p Phase) bool {
	l.mu.Lock()
	if p == l.phase {
		l.mu.Unlock()
		return false
	}
	prev := l.phase
	l.phase = p
	l.mu.Unlock()

	l.journal.Info("phase %s -> %s", prev, p)
	l.recorder.ObservePhase(p.String())
	if l.cb.OnPhase != nil {
		l.cb.OnPhase(p)
	}
	return true
}

func (l *Lifecycle[R]) setState(s State) {
	l.mu.Lock()
	if l.state == s && s != StateAwaitingSelection {
		l.mu.Unlock()
		return
	}
	l.state = s
	l.mu.Unlock()

	if l.cb.OnState != nil {
		l.cb.OnState(s)
	}
}

// task is one callable running against the robot in its own goroutine.
type task struct {
	kind    TaskKind
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan error
	started time.Time
}

func (l *Lifecycle[R]) start(ctx context.Context, kind TaskKind, name string, fn func(context.Context) error) *task {
	tctx, cancel := context.WithCancel(ctx)
	t := &task{
		kind:    kind,
		name:    name,
		ctx:     tctx,
		cancel:  cancel,
		done:    make(chan error, 1),
		started: time.Now(),
	}
	if name != "" {
		l.journal.Info("%s %q started", kind, name)
	} else {
		l.journal.Info("%s started", kind)
	}
	go func() {
		t.done <- fn(tctx)
	}()
	return t
}

// stop cancels t and waits for it to return. Only one task may touch the
// robot, so the next one starts after this returns.
func (l *Lifecycle[R]) stop(t *task) error {
	if t == nil {
		return nil
	}
	t.cancel()
	return l.finish(t, <-t.done)
}

// finish records how t ended. Errors caused by cancelling the task are not
// failures.
func (l *Lifecycle[R]) finish(t *task, err error) error {
	cancelled := t.ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled))
	t.cancel()
	l.recorder.ObserveTask(string(t.kind), t.label(), time.Since(t.started), err, cancelled)

	switch {
	case cancelled:
		l.journal.Info("%s cancelled", t.label())
		return nil
	case err != nil:
		l.journal.Error("%s failed: %v", t.label(), err)
		return &TaskError{Kind: t.kind, Route: t.name, Err: err}
	default:
		l.journal.Info("%s finished", t.label())
		return nil
	}
}

func (t *task) label() string {
	if t.name != "" {
		return t.name
	}
	return string(t.kind)
}
