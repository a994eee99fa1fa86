package compete

import (
	"fmt"
	"strings"
)

// Phase is the competition mode reported by the field controller.
type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseAutonomous
	PhaseDriverControl
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseAutonomous:
		return "autonomous"
	case PhaseDriverControl:
		return "driver"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase accepts the names printed by String plus a few common aliases.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "disable":
		return PhaseDisabled, nil
	case "autonomous", "auto":
		return PhaseAutonomous, nil
	case "driver", "driver_control", "drivercontrol", "opcontrol", "usercontrol":
		return PhaseDriverControl, nil
	default:
		return 0, fmt.Errorf("compete: unknown phase %q", s)
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseDisabled || p > PhaseDriverControl {
		return nil, fmt.Errorf("compete: invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Source delivers phase changes in order. Closing the channel means the
// controller disconnected.
type Source interface {
	Phases() <-chan Phase
}

// ChannelSource adapts a plain channel into a Source.
type ChannelSource chan Phase

func (c ChannelSource) Phases() <-chan Phase {
	return c
}

// State is the lifecycle's position in a match.
type State int

const (
	StateAwaitingSelection State = iota
	StateSelectionLocked
	StateRunningAutonomous
	StateRunningDriver
	StateIdle
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateAwaitingSelection:
		return "awaiting selection"
	case StateSelectionLocked:
		return "selection locked"
	case StateRunningAutonomous:
		return "running autonomous"
	case StateRunningDriver:
		return "running driver"
	case StateIdle:
		return "idle"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
