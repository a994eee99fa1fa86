package fieldbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vexide/autons/compete"
)

const (
	// ProtocolVersion is reported on /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the only accepted Event.Version.
	EventSchemaVersion = 1
)

// EventType says what a field controller event carries.
type EventType string

const (
	TypePhase      EventType = "phase"
	TypeDisconnect EventType = "disconnect"
)

// Event is one message from the field controller. EventID deduplicates
// retries; Sequence orders events from a single client.
type Event struct {
	Version    int       `json:"version"`
	EventID    string    `json:"event_id"`
	Sequence   int64     `json:"sequence"`
	Type       EventType `json:"type"`
	Phase      string    `json:"phase,omitempty"`
	ClientTime time.Time `json:"client_time"`
	ServerTime time.Time `json:"server_time"`
}

// Normalize trims and lowercases identifiers and defaults the version.
func (e *Event) Normalize() {
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.Type = EventType(strings.ToLower(strings.TrimSpace(string(e.Type))))
	e.Phase = strings.ToLower(strings.TrimSpace(e.Phase))
}

// StampServerTime records when the bridge received the event.
func (e *Event) StampServerTime(now time.Time) {
	e.ServerTime = now.UTC()
}

// Validate reports every problem with the event at once.
func (e Event) Validate() error {
	var errs []error
	if e.Version != EventSchemaVersion {
		errs = append(errs, fmt.Errorf("version %d not supported", e.Version))
	}
	if e.EventID == "" {
		errs = append(errs, errors.New("event_id is required"))
	}
	if e.Sequence < 0 {
		errs = append(errs, errors.New("sequence must not be negative"))
	}
	switch e.Type {
	case TypePhase:
		if _, err := compete.ParsePhase(e.Phase); err != nil {
			errs = append(errs, err)
		}
	case TypeDisconnect:
	case "":
		errs = append(errs, errors.New("type is required"))
	default:
		errs = append(errs, fmt.Errorf("type %q not supported", e.Type))
	}
	return errors.Join(errs...)
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

type EventProcessorFunc func(Event) error

func (f EventProcessorFunc) HandleEvent(e Event) error {
	return f(e)
}

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

// HealthResponse is the body served by /health. Last is the most recent
// accepted phase, or "disconnect".
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Accepted      int64  `json:"accepted"`
	Rejected      int64  `json:"rejected"`
	Last          string `json:"last,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
