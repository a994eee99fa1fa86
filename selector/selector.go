// Package selector defines the contract every autonomous route selector
// satisfies so the competition lifecycle can run it without knowing how the
// operator interacts with it.
package selector

import (
	"context"
	"fmt"
)

// Selection is the committed outcome of a selection window.
type Selection struct {
	// Index of the committed route in the route table.
	Index int
	// Confirmed is false when the selection was locked because the phase
	// left Disabled before the operator confirmed.
	Confirmed bool
}

func (s Selection) String() string {
	if s.Confirmed {
		return fmt.Sprintf("route %d (confirmed)", s.Index)
	}
	return fmt.Sprintf("route %d (fallback)", s.Index)
}

// Selector picks the route to run during the autonomous period.
type Selector interface {
	// RunSelection blocks until a route is committed. When ctx is cancelled
	// before the operator confirms, it must return promptly with the current
	// highlight and Confirmed=false. Once committed, later calls return the
	// same Selection.
	RunSelection(ctx context.Context) (Selection, error)

	// Highlight reports the currently highlighted index without side effects.
	Highlight() int
}

// Fixed is a selector with no operator interaction: it always commits the
// index it holds.
type Fixed int

// RunSelection implements Selector.
func (f Fixed) RunSelection(context.Context) (Selection, error) {
	return Selection{Index: int(f), Confirmed: true}, nil
}

// Highlight implements Selector.
func (f Fixed) Highlight() int {
	return int(f)
}
