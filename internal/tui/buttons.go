package tui

import (
	"sync"

	"github.com/vexide/autons/simple"
)

const maxQueuedPresses = 32

// Button names one of the selector's inputs.
type Button int

const (
	ButtonNext Button = iota
	ButtonPrevious
	ButtonConfirm
)

// Buttons turns key presses into button levels. Each press reads as pressed
// for exactly one poll and released on the next, so a held key never
// repeats. It implements simple.Input.
type Buttons struct {
	mu    sync.Mutex
	queue []simple.Buttons
}

var _ simple.Input = (*Buttons)(nil)

// Press queues one press of b. Presses beyond the queue limit are dropped.
func (b *Buttons) Press(button Button) {
	var level simple.Buttons
	switch button {
	case ButtonNext:
		level.Next = true
	case ButtonPrevious:
		level.Previous = true
	case ButtonConfirm:
		level.Confirm = true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) >= maxQueuedPresses*2 {
		return
	}
	b.queue = append(b.queue, level, simple.Buttons{})
}

// Poll implements simple.Input.
func (b *Buttons) Poll() (simple.Buttons, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return simple.Buttons{}, nil
	}
	level := b.queue[0]
	b.queue = b.queue[1:]
	return level, nil
}
