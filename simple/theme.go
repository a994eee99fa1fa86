package simple

import (
	"fmt"
	"strings"
)

// Color is a 24-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Hex renders the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Theme colours the route list. Active styles are used for the row the
// operator is moving through, selected styles for the highlighted route.
type Theme struct {
	BackgroundDefault        Color
	BackgroundActive         Color
	BackgroundSelected       Color
	BackgroundSelectedActive Color

	TextDefault        Color
	TextActive         Color
	TextSelected       Color
	TextSelectedActive Color

	Border Color
}

// ThemeDark mimics the VEXos dashboards and is the default.
var ThemeDark = Theme{
	BackgroundDefault:        RGB(25, 25, 25),
	BackgroundActive:         RGB(102, 102, 102),
	BackgroundSelected:       RGB(67, 189, 224),
	BackgroundSelectedActive: RGB(123, 209, 233),

	TextDefault:        RGB(187, 187, 187),
	TextActive:         RGB(187, 187, 187),
	TextSelected:       RGB(255, 255, 255),
	TextSelectedActive: RGB(255, 255, 255),

	Border: RGB(153, 153, 153),
}

// ThemeLight is a high-contrast variant for bright pits.
var ThemeLight = Theme{
	BackgroundDefault:        RGB(235, 235, 235),
	BackgroundActive:         RGB(200, 200, 200),
	BackgroundSelected:       RGB(30, 120, 170),
	BackgroundSelectedActive: RGB(60, 150, 200),

	TextDefault:        RGB(40, 40, 40),
	TextActive:         RGB(20, 20, 20),
	TextSelected:       RGB(255, 255, 255),
	TextSelectedActive: RGB(255, 255, 255),

	Border: RGB(120, 120, 120),
}

// ThemeByName resolves "dark" or "light".
func ThemeByName(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dark":
		return ThemeDark, nil
	case "light":
		return ThemeLight, nil
	default:
		return Theme{}, fmt.Errorf("simple: unknown theme %q", name)
	}
}

func (t Theme) colors(selected, active bool) (fg, bg Color) {
	switch {
	case selected && active:
		return t.TextSelectedActive, t.BackgroundSelectedActive
	case selected:
		return t.TextSelected, t.BackgroundSelected
	case active:
		return t.TextActive, t.BackgroundActive
	default:
		return t.TextDefault, t.BackgroundDefault
	}
}
