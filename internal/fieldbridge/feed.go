package fieldbridge

import (
	"errors"
	"sync"

	"github.com/vexide/autons/compete"
)

const (
	defaultFeedCapacity = 16
	defaultDedupeWindow = 1024
)

// ErrFeedClosed is returned for events that arrive after a disconnect.
var ErrFeedClosed = errors.New("fieldbridge: feed closed")

// FeedOption customizes Feed construction.
type FeedOption func(*Feed)

// FeedWithLogger injects a logger for drop/diagnostic messages.
func FeedWithLogger(logger Logger) FeedOption {
	return func(f *Feed) {
		f.logger = logger
	}
}

// FeedWithCapacity overrides the buffered phase channel size.
func FeedWithCapacity(capacity int) FeedOption {
	return func(f *Feed) {
		if capacity > 0 {
			f.capacity = capacity
		}
	}
}

// FeedWithDedupeWindow controls how many recent event IDs are retained.
func FeedWithDedupeWindow(size int) FeedOption {
	return func(f *Feed) {
		if size > 0 {
			f.dedupeWindow = size
		}
	}
}

// Feed turns bridge events into an ordered phase stream. It implements
// compete.Source and EventProcessor. Duplicate IDs and sequences older than
// the last delivered one are dropped. When the reader falls behind, the
// oldest queued phase is discarded so the newest always gets through.
type Feed struct {
	mu           sync.Mutex
	ch           chan compete.Phase
	closed       bool
	lastSeq      int64
	recentIDs    map[string]struct{}
	recentOrder  []string
	capacity     int
	dedupeWindow int
	logger       Logger
}

var _ compete.Source = (*Feed)(nil)

// NewFeed constructs a feed with sane defaults.
func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{
		recentIDs:    map[string]struct{}{},
		capacity:     defaultFeedCapacity,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.recentOrder = make([]string, 0, f.dedupeWindow)
	f.ch = make(chan compete.Phase, f.capacity)
	return f
}

// Phases implements compete.Source.
func (f *Feed) Phases() <-chan compete.Phase {
	return f.ch
}

// HandleEvent satisfies the EventProcessor interface.
func (f *Feed) HandleEvent(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	if event.EventID != "" && f.isDuplicate(event.EventID) {
		return nil
	}
	if event.Sequence > 0 {
		if event.Sequence <= f.lastSeq {
			f.logf("fieldbridge: dropped stale %s (sequence %d <= %d)", event.Type, event.Sequence, f.lastSeq)
			return nil
		}
		f.lastSeq = event.Sequence
	}
	switch event.Type {
	case TypeDisconnect:
		f.closeLocked()
		return nil
	case TypePhase:
		phase, err := compete.ParsePhase(event.Phase)
		if err != nil {
			return err
		}
		f.deliver(phase)
		return nil
	default:
		return nil
	}
}

// Close ends the phase stream as if the controller disconnected.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

func (f *Feed) closeLocked() {
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}

// deliver must be called with f.mu held.
func (f *Feed) deliver(phase compete.Phase) {
	select {
	case f.ch <- phase:
		return
	default:
	}
	select {
	case dropped := <-f.ch:
		f.logf("fieldbridge: dropped %s (queue overflow)", dropped)
	default:
	}
	select {
	case f.ch <- phase:
	default:
		f.logf("fieldbridge: dropped %s (queue overflow:incoming)", phase)
	}
}

func (f *Feed) isDuplicate(eventID string) bool {
	if _, ok := f.recentIDs[eventID]; ok {
		return true
	}
	f.recentIDs[eventID] = struct{}{}
	f.recentOrder = append(f.recentOrder, eventID)
	if len(f.recentOrder) > f.dedupeWindow {
		oldest := f.recentOrder[0]
		f.recentOrder = f.recentOrder[1:]
		delete(f.recentIDs, oldest)
	}
	return false
}

func (f *Feed) logf(format string, args ...any) {
	if f.logger == nil {
		return
	}
	f.logger.Printf(format, args...)
}
