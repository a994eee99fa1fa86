package tui

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/vexide/autons/simple"
)

// ErrInjectedFault is returned by Screen writes while faults are injected.
var ErrInjectedFault = errors.New("tui: injected display fault")

type segment struct {
	x      int
	text   string
	fg, bg simple.Color
	styled bool
}

// Screen is an in-memory text display standing in for the brain screen. It
// implements simple.Display and simple.ColorDisplay and is safe for
// concurrent use.
type Screen struct {
	mu     sync.Mutex
	width  int
	height int
	rows   map[int][]segment
	faults int
	notify func()
}

var _ simple.ColorDisplay = (*Screen)(nil)

// NewScreen returns a blank screen of width columns by height rows.
func NewScreen(width, height int) *Screen {
	return &Screen{width: width, height: height, rows: map[int][]segment{}}
}

// OnChange registers fn to run after every successful write.
func (s *Screen) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// InjectFaults makes the next n writes fail.
func (s *Screen) InjectFaults(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults += n
}

func (s *Screen) Clear() error {
	return s.write(func() { s.rows = map[int][]segment{} })
}

func (s *Screen) DrawText(pos image.Point, text string) error {
	return s.draw(pos, segment{x: pos.X, text: text})
}

func (s *Screen) DrawStyledText(pos image.Point, text string, fg, bg simple.Color) error {
	return s.draw(pos, segment{x: pos.X, text: text, fg: fg, bg: bg, styled: true})
}

func (s *Screen) draw(pos image.Point, seg segment) error {
	if pos.X < 0 || pos.Y < 0 || pos.X >= s.width || pos.Y >= s.height {
		return fmt.Errorf("tui: draw at %v outside %dx%d screen", pos, s.width, s.height)
	}
	seg.text = ansi.Truncate(seg.text, s.width-pos.X, "")
	return s.write(func() {
		row := s.rows[pos.Y][:0:0]
		for _, existing := range s.rows[pos.Y] {
			if existing.x != pos.X {
				row = append(row, existing)
			}
		}
		s.rows[pos.Y] = append(row, seg)
	})
}

func (s *Screen) write(apply func()) error {
	s.mu.Lock()
	if s.faults > 0 {
		s.faults--
		s.mu.Unlock()
		return ErrInjectedFault
	}
	apply()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return nil
}

// Lines returns the screen as plain text, one entry per row.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, s.height)
	for y := 0; y < s.height; y++ {
		var b strings.Builder
		col := 0
		for _, seg := range s.sorted(y) {
			if seg.x > col {
				b.WriteString(strings.Repeat(" ", seg.x-col))
				col = seg.x
			}
			b.WriteString(seg.text)
			col += ansi.StringWidth(seg.text)
		}
		lines[y] = b.String()
	}
	return lines
}

// Render draws the screen with each segment's colours.
func (s *Screen) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, s.height)
	for y := 0; y < s.height; y++ {
		var b strings.Builder
		col := 0
		for _, seg := range s.sorted(y) {
			if seg.x > col {
				b.WriteString(strings.Repeat(" ", seg.x-col))
				col = seg.x
			}
			if seg.styled {
				style := lipgloss.NewStyle().
					Foreground(lipgloss.Color(seg.fg.Hex())).
					Background(lipgloss.Color(seg.bg.Hex()))
				b.WriteString(style.Render(seg.text))
			} else {
				b.WriteString(seg.text)
			}
			col += ansi.StringWidth(seg.text)
		}
		if col < s.width {
			b.WriteString(strings.Repeat(" ", s.width-col))
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

// sorted must be called with s.mu held.
func (s *Screen) sorted(y int) []segment {
	row := append([]segment(nil), s.rows[y]...)
	sort.Slice(row, func(i, j int) bool { return row[i].x < row[j].x })
	return row
}
