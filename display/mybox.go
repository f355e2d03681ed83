package eventide

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// GetTTY opens and initializes the terminal screen
func GetTTY() (tcell.Screen, error) {
	defStyle := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset)

	// New screen
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("could not get new screen: %w", err)
	}

	// Initialize screen
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize screen: %w", err)
	}
	s.SetStyle(defStyle)
	s.EnableMouse()
	s.EnablePaste()
	s.Clear()

	return s, nil
}

// WriteBar shows a long bar for the amount entered
// x1 = starting X axis (from left), x2 = ending X axis (from left)
// y1 = starting Y axis (from top), y2 = ending Y axis (from top)
func WriteBar(s tcell.Screen, x1, y1, x2, y2 int, style tcell.Style) {
	for row := y1; row < y2; row++ {
		for col := x1; col < x2; col++ {
			s.SetContent(col, row, ' ', nil, style)
		}
	}
}

// BlendColor parses #RRGGBB or #RRGGBBAA and blends it over a black
// background by alpha, times the colour's own alpha byte when present.
// Unparseable colours come back as the terminal default.
func BlendColor(hex string, alpha float64) tcell.Color {
	hex = strings.TrimSpace(hex)
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return tcell.ColorDefault
		}
		alpha *= float64(a) / 255
		hex = hex[:7]
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return tcell.ColorDefault
	}

	alpha = math.Max(0, math.Min(1, alpha))
	r, g, b := colorful.Color{}.BlendRgb(c, alpha).Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// TimeToColumn maps relative time in [-window, 0] onto columns [x1, x2]
func TimeToColumn(rel, window float64, x1, x2 int) int {
	if window <= 0 || x2 <= x1 {
		return x1
	}
	frac := (rel + window) / window
	col := x1 + int(math.Round(frac*float64(x2-x1)))
	return max(x1, min(x2, col))
}

var sparkRunes = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var sparkColors = []tcell.Color{
	tcell.ColorSeaGreen,
	tcell.ColorMediumSeaGreen,
	tcell.ColorLightSeaGreen,
	tcell.ColorDarkTurquoise,
	tcell.ColorMediumTurquoise,
	tcell.ColorTurquoise,
	tcell.ColorLightGreen,
	tcell.ColorAquaMarine,
}

// SparkRune picks the block height and colour for a rate in [0, 1]
func SparkRune(v float64) (rune, tcell.Style) {
	v = math.Max(0, math.Min(1, v))
	i := int(math.Round(v * float64(len(sparkRunes)-1)))
	return sparkRunes[i], tcell.StyleDefault.Foreground(sparkColors[i])
}

// MarkerRune is the glyph for a point marker shape
func MarkerRune(shape string) rune {
	switch shape {
	case "circle", "o":
		return '●'
	case "square", "s":
		return '■'
	case "triangle", "^":
		return '▲'
	case "diamond", "D":
		return '◆'
	case "cross", "x":
		return '✕'
	case "plus", "+":
		return '+'
	case "line", "|":
		return '│'
	default:
		return '•'
	}
}
