package simple

import (
	"fmt"
	"image"
)

const (
	rowName   = 0
	rowCount  = 1
	rowBanner = 2
	rowList   = 4

	marker   = "> "
	unmarked = "  "
)

// render redraws the whole screen from the current state. A display fault
// below the failure limit leaves the screen dirty so the next poll retries.
func (s *Select[R]) render() error {
	s.mu.Lock()
	st := s.state
	s.dirty = false
	s.mu.Unlock()

	if err := s.draw(st, false); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return s.fault(deviceDisplay, &s.displayFailures, err)
	}
	s.displayFailures = 0
	return nil
}

// drawLocked draws the final screen with the locked banner. It is the last
// write the selector makes, so faults are only recorded.
func (s *Select[R]) drawLocked() {
	st := s.State()
	if err := s.draw(st, true); err != nil {
		s.opts.recorder.ObserveDeviceFault(deviceDisplay)
		s.opts.journal.Warn("display fault drawing lock banner: %v", err)
	}
}

func (s *Select[R]) draw(st State, locked bool) error {
	if err := s.display.Clear(); err != nil {
		return err
	}
	n := len(s.names)
	h := st.Highlighted
	if err := s.text(image.Pt(0, rowName), s.names[h], true, !locked); err != nil {
		return err
	}
	if err := s.text(image.Pt(0, rowCount), fmt.Sprintf("%d / %d", h+1, n), false, false); err != nil {
		return err
	}
	if locked {
		if err := s.text(image.Pt(0, rowBanner), "LOCKED: "+s.names[st.Committed], true, true); err != nil {
			return err
		}
	}
	for i, name := range s.names {
		prefix := unmarked
		if i == h {
			prefix = marker
		}
		if err := s.text(image.Pt(0, rowList+i), prefix+name, i == h, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *Select[R]) text(pos image.Point, text string, selected, active bool) error {
	if cd, ok := s.display.(ColorDisplay); ok {
		fg, bg := s.opts.theme.colors(selected, active)
		return cd.DrawStyledText(pos, text, fg, bg)
	}
	return s.display.DrawText(pos, text)
}
