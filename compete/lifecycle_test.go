package compete

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexide/autons/route"
	"github.com/vexide/autons/selector"
	"github.com/vexide/autons/simple"
)

const waitFor = 2 * time.Second
const tick = time.Millisecond

type robot struct {
	mu     sync.Mutex
	events []string
	active atomic.Int32
	peak   atomic.Int32
}

func (r *robot) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *robot) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *robot) count(event string) int {
	n := 0
	for _, e := range r.log() {
		if e == event {
			n++
		}
	}
	return n
}

func (r *robot) enter() func() {
	n := r.active.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { r.active.Add(-1) }
}

// quick returns a route body that records its name and returns.
func quick(name string) route.Func[*robot] {
	return func(ctx context.Context, r *robot) error {
		defer r.enter()()
		r.record(name)
		return nil
	}
}

// blocking returns a body that runs until cancelled.
func blocking(name string) route.Func[*robot] {
	return func(ctx context.Context, r *robot) error {
		defer r.enter()()
		r.record(name)
		<-ctx.Done()
		r.record(name + " cancelled")
		return ctx.Err()
	}
}

func table(t *testing.T, bodies ...route.Func[*robot]) *route.Table[*robot] {
	t.Helper()
	names := []string{"A", "B", "C"}
	routes := make([]route.Route[*robot], len(bodies))
	for i, body := range bodies {
		routes[i] = route.New(names[i], body)
	}
	tbl, err := route.NewTable(routes...)
	require.NoError(t, err)
	return tbl
}

type idleDisplay struct{}

func (idleDisplay) Clear() error { return nil }
func (idleDisplay) DrawText(image.Point, string) error { return nil }

type idleInput struct{}

func (idleInput) Poll() (simple.Buttons, error) { return simple.Buttons{}, nil }

type failingSelector struct{ err error }

func (f failingSelector) RunSelection(context.Context) (selector.Selection, error) {
	return selector.Selection{}, f.err
}

func (failingSelector) Highlight() int { return 0 }

type harness struct {
	lc     *Lifecycle[*robot]
	source ChannelSource
	done   chan error
}

func start(t *testing.T, ctx context.Context, r *robot, tbl *route.Table[*robot], sel selector.Selector, opts ...Option) *harness {
	t.Helper()
	source := make(ChannelSource, 8)
	lc, err := New(r, tbl, sel, source, opts...)
	require.NoError(t, err)
	h := &harness{lc: lc, source: source, done: make(chan error, 1)}
	go func() { h.done <- lc.Run(ctx) }()
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(waitFor):
		t.Fatalf("lifecycle did not finish")
		return nil
	}
}

func (h *harness) waitState(t *testing.T, s State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.lc.State() == s }, waitFor, tick, "state %s", s)
}

func TestImmediateAutonomousRunsFirstRoute(t *testing.T) {
	r := &robot{}
	tbl := table(t, quick("A"), quick("B"), quick("C"))
	sel, err := simple.New(idleDisplay{}, idleInput{}, tbl, simple.WithPollInterval(tick))
	require.NoError(t, err)

	var commits []selector.Selection
	h := start(t, context.Background(), r, tbl, sel, WithCallbacks(Callbacks{
		OnCommit: func(_ string, s selector.Selection) { commits = append(commits, s) },
	}))
	h.source <- PhaseAutonomous

	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	close(h.source)
	require.NoError(t, h.wait(t))

	require.Equal(t, []selector.Selection{{Index: 0, Confirmed: false}}, commits)
	assert.Equal(t, StateFinished, h.lc.State())
}

func TestConfirmedSelectionRunsOnAutonomous(t *testing.T) {
	r := &robot{}
	tbl := table(t, quick("A"), quick("B"), quick("C"))
	h := start(t, context.Background(), r, tbl, selector.Fixed(1))

	h.waitState(t, StateSelectionLocked)
	committed, ok := h.lc.Committed()
	require.True(t, ok)
	assert.Equal(t, selector.Selection{Index: 1, Confirmed: true}, committed)

	h.source <- PhaseAutonomous
	h.waitState(t, StateIdle)
	close(h.source)
	require.NoError(t, h.wait(t))
	assert.Equal(t, []string{"B"}, r.log())
}

func TestDisabledCancelsRouteAndAutonomousReruns(t *testing.T) {
	r := &robot{}
	tbl := table(t, blocking("A"), quick("B"))
	hooks := Hooks[*robot]{Disabled: quick("disabled")}
	h := start(t, context.Background(), r, tbl, selector.Fixed(0), WithHooks(hooks))

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	h.source <- PhaseDisabled
	require.Eventually(t, func() bool { return r.count("disabled") == 2 }, waitFor, tick)
	assert.Equal(t, StateIdle, h.lc.State())

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 2 }, waitFor, tick)
	close(h.source)
	require.NoError(t, h.wait(t))

	assert.Equal(t, []string{"disabled", "A", "A cancelled", "disabled", "A", "A cancelled"}, r.log())
	assert.Equal(t, int32(1), r.peak.Load(), "tasks overlapped")
}

func TestConnectedThenDisabledRunDuringSelection(t *testing.T) {
	r := &robot{}
	tbl := table(t, quick("A"), quick("B"))
	sel, err := simple.New(idleDisplay{}, idleInput{}, tbl, simple.WithPollInterval(tick))
	require.NoError(t, err)
	hooks := Hooks[*robot]{Connected: quick("connected"), Disabled: blocking("disabled")}
	h := start(t, context.Background(), r, tbl, sel, WithHooks(hooks))

	require.Eventually(t, func() bool { return r.count("disabled") == 1 }, waitFor, tick)
	assert.Equal(t, StateAwaitingSelection, h.lc.State())

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	close(h.source)
	require.NoError(t, h.wait(t))

	assert.Equal(t, []string{"connected", "disabled", "disabled cancelled", "A"}, r.log())
	assert.Equal(t, int32(1), r.peak.Load(), "tasks overlapped")
	committed, ok := h.lc.Committed()
	require.True(t, ok)
	assert.False(t, committed.Confirmed)
}

func TestDisabledHookOutlivesCommit(t *testing.T) {
	r := &robot{}
	hooks := Hooks[*robot]{Disabled: blocking("disabled")}
	h := start(t, context.Background(), r, table(t, quick("A")), selector.Fixed(0), WithHooks(hooks))

	h.waitState(t, StateSelectionLocked)
	require.Eventually(t, func() bool { return r.count("disabled") == 1 }, waitFor, tick)
	assert.Zero(t, r.count("disabled cancelled"))

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	close(h.source)
	require.NoError(t, h.wait(t))
	assert.Equal(t, []string{"disabled", "disabled cancelled", "A"}, r.log())
}

func TestConnectedFailureEndsRun(t *testing.T) {
	boom := errors.New("imu missing")
	hooks := Hooks[*robot]{Connected: func(context.Context, *robot) error { return boom }}
	tbl := table(t, quick("A"))
	sel, err := simple.New(idleDisplay{}, idleInput{}, tbl, simple.WithPollInterval(tick))
	require.NoError(t, err)
	h := start(t, context.Background(), &robot{}, tbl, sel, WithHooks(hooks))

	err = h.wait(t)
	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, KindConnected, taskErr.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestDriverControlRunsDriver(t *testing.T) {
	r := &robot{}
	tbl := table(t, blocking("A"))
	h := start(t, context.Background(), r, tbl, selector.Fixed(0), WithDriver(blocking("driver")))

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	h.source <- PhaseDriverControl
	h.waitState(t, StateRunningDriver)
	require.Eventually(t, func() bool { return r.count("driver") == 1 }, waitFor, tick)
	close(h.source)
	require.NoError(t, h.wait(t))

	assert.Equal(t, []string{"A", "A cancelled", "driver", "driver cancelled"}, r.log())
	assert.Equal(t, int32(1), r.peak.Load())
}

func TestDriverControlWithoutDriverIdles(t *testing.T) {
	r := &robot{}
	h := start(t, context.Background(), r, table(t, quick("A")), selector.Fixed(0))

	h.waitState(t, StateSelectionLocked)
	h.source <- PhaseDriverControl
	h.waitState(t, StateIdle)
	close(h.source)
	require.NoError(t, h.wait(t))
	assert.Empty(t, r.log())
}

func TestRepeatedPhaseIsIgnored(t *testing.T) {
	r := &robot{}
	var phases []Phase
	h := start(t, context.Background(), r, table(t, quick("A")), selector.Fixed(0),
		WithCallbacks(Callbacks{OnPhase: func(p Phase) { phases = append(phases, p) }}))

	h.source <- PhaseAutonomous
	h.source <- PhaseAutonomous
	h.source <- PhaseDisabled
	h.source <- PhaseDisabled
	close(h.source)
	require.NoError(t, h.wait(t))

	assert.Equal(t, 1, r.count("A"))
	assert.Equal(t, []Phase{PhaseAutonomous, PhaseDisabled}, phases)
}

func TestHooksWrapRoute(t *testing.T) {
	r := &robot{}
	hooks := Hooks[*robot]{
		BeforeRoute:  quick("before"),
		AfterRoute:   quick("after"),
		Disconnected: quick("disconnected"),
	}
	h := start(t, context.Background(), r, table(t, quick("A")), selector.Fixed(0), WithHooks(hooks))

	h.source <- PhaseAutonomous
	h.waitState(t, StateIdle)
	close(h.source)
	require.NoError(t, h.wait(t))
	assert.Equal(t, []string{"before", "A", "after", "disconnected"}, r.log())
}

func TestDisconnectDuringSelection(t *testing.T) {
	r := &robot{}
	tbl := table(t, quick("A"), quick("B"))
	sel, err := simple.New(idleDisplay{}, idleInput{}, tbl, simple.WithPollInterval(tick), simple.WithInitial(1))
	require.NoError(t, err)

	h := start(t, context.Background(), r, tbl, sel, WithHooks(Hooks[*robot]{Disconnected: quick("disconnected")}))
	close(h.source)
	require.NoError(t, h.wait(t))

	committed, ok := h.lc.Committed()
	require.True(t, ok)
	assert.Equal(t, 1, committed.Index)
	assert.Equal(t, []string{"disconnected"}, r.log())
}

func TestRouteErrorIsReturned(t *testing.T) {
	boom := errors.New("arm stalled")
	r := &robot{}
	fail := func(context.Context, *robot) error { return boom }
	h := start(t, context.Background(), r, table(t, quick("A"), fail), selector.Fixed(1))

	h.source <- PhaseAutonomous
	err := h.wait(t)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, KindAutonomous, taskErr.Kind)
	assert.Equal(t, "B", taskErr.Route)
	assert.ErrorIs(t, err, boom)
}

func TestHostCancellationStopsRun(t *testing.T) {
	r := &robot{}
	ctx, cancel := context.WithCancel(context.Background())
	h := start(t, ctx, r, table(t, blocking("A")), selector.Fixed(0))

	h.source <- PhaseAutonomous
	require.Eventually(t, func() bool { return r.count("A") == 1 }, waitFor, tick)
	cancel()

	require.ErrorIs(t, h.wait(t), context.Canceled)
	assert.Equal(t, 1, r.count("A cancelled"))
}

func TestSelectorFailureIsReturned(t *testing.T) {
	devErr := &simple.DeviceError{Device: "input", Failures: 5, Err: errors.New("unplugged")}
	h := start(t, context.Background(), &robot{}, table(t, quick("A")), failingSelector{err: devErr})

	err := h.wait(t)
	var got *simple.DeviceError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "input", got.Device)
}

func TestNewValidates(t *testing.T) {
	tbl := table(t, quick("A"))

	_, err := New[*robot](&robot{}, nil, selector.Fixed(0), make(ChannelSource))
	assert.ErrorIs(t, err, route.ErrConfiguration)

	_, err = New(&robot{}, tbl, nil, make(ChannelSource))
	assert.ErrorIs(t, err, ErrNilSelector)

	_, err = New(&robot{}, tbl, selector.Fixed(0), nil)
	assert.ErrorIs(t, err, ErrNilSource)

	other := func(context.Context, string) error { return nil }
	_, err = New(&robot{}, tbl, selector.Fixed(0), make(ChannelSource), WithDriver(other))
	assert.Error(t, err)
}

func TestEmptyTableNeverStartsLifecycle(t *testing.T) {
	_, err := route.NewTable[*robot]()
	require.ErrorIs(t, err, route.ErrConfiguration)
}

func TestRunOnlyOnce(t *testing.T) {
	h := start(t, context.Background(), &robot{}, table(t, quick("A")), selector.Fixed(0))
	close(h.source)
	require.NoError(t, h.wait(t))
	assert.Error(t, h.lc.Run(context.Background()))
}
