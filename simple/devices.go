package simple

import (
	"fmt"
	"image"
)

// Buttons is the level of each logical input at one poll.
type Buttons struct {
	Next     bool
	Previous bool
	Confirm  bool
}

// Display is the drawing surface the selector owns while a selection is open.
type Display interface {
	Clear() error
	DrawText(pos image.Point, text string) error
}

// ColorDisplay is implemented by displays that can draw themed text. The
// selector falls back to DrawText when a display does not implement it.
type ColorDisplay interface {
	Display
	DrawStyledText(pos image.Point, text string, fg, bg Color) error
}

// Input reports button levels. Edge detection happens in the selector.
type Input interface {
	Poll() (Buttons, error)
}

// DeviceError reports a display or input that kept failing during selection.
type DeviceError struct {
	Device   string
	Failures int
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("simple: %s failed %d consecutive times: %v", e.Device, e.Failures, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

const (
	deviceDisplay = "display"
	deviceInput   = "input"
)
