package compete

import (
	"errors"
	"fmt"
)

// ErrNilSource is returned when a lifecycle has no phase source.
var ErrNilSource = errors.New("compete: nil phase source")

// ErrNilSelector is returned when a lifecycle has no selector.
var ErrNilSelector = errors.New("compete: nil selector")

// TaskKind names what a task was running against the robot.
type TaskKind string

const (
	KindAutonomous   TaskKind = "autonomous"
	KindDriver       TaskKind = "driver"
	KindDisabled     TaskKind = "disabled"
	KindConnected    TaskKind = "connected"
	KindDisconnected TaskKind = "disconnected"
)

// TaskError wraps a failure returned by a route, the driver callback or a
// hook. Route is empty for tasks that are not routes.
type TaskError struct {
	Kind  TaskKind
	Route string
	Err   error
}

func (e *TaskError) Error() string {
	if e.Route != "" {
		return fmt.Sprintf("compete: %s route %q: %v", e.Kind, e.Route, e.Err)
	}
	return fmt.Sprintf("compete: %s: %v", e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
