package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultForwardBuffer is how many messages a Forwarder holds before it
// starts dropping.
const DefaultForwardBuffer = 64

// Forwarder decouples the match from the program. Send never blocks: once
// the buffer is full new messages are dropped and counted. Run drains the
// buffer into the program.
type Forwarder struct {
	ch      chan tea.Msg
	dropped atomic.Int64
}

// NewForwarder returns a forwarder holding up to size pending messages.
func NewForwarder(size int) *Forwarder {
	if size <= 0 {
		size = DefaultForwardBuffer
	}
	return &Forwarder{ch: make(chan tea.Msg, size)}
}

// Send queues msg, dropping it if the buffer is full.
func (f *Forwarder) Send(msg tea.Msg) {
	select {
	case f.ch <- msg:
	default:
		f.dropped.Add(1)
	}
}

// Dropped reports how many messages Send discarded.
func (f *Forwarder) Dropped() int64 {
	return f.dropped.Load()
}

// Run hands queued messages to send, usually (*tea.Program).Send, until ctx
// is done.
func (f *Forwarder) Run(ctx context.Context, send func(tea.Msg)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-f.ch:
			send(msg)
		}
	}
}
