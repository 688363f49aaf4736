package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
)

// Color is a foreground color usable both for plain terminal output and on a
// tcell screen.
type Color interface {
	FgString(text string) string
	Tcell() tcell.Color
}

type namedColor struct {
	colorFunc func(...interface{}) string
	tcell     tcell.Color
}

func (c namedColor) FgString(text string) string {
	return c.colorFunc(text)
}

func (c namedColor) Tcell() tcell.Color {
	return c.tcell
}

type rgbColor struct {
	r, g, b uint8
}

func (c rgbColor) FgString(text string) string {
	// fatih/color has no truecolor attribute
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", c.r, c.g, c.b, text)
}

func (c rgbColor) Tcell() tcell.Color {
	return tcell.NewRGBColor(int32(c.r), int32(c.g), int32(c.b))
}

var rgbRegex = regexp.MustCompile(`^#([a-fA-F0-9]{2})([a-fA-F0-9]{2})([a-fA-F0-9]{2})$`)

var (
	colorCache = make(map[string]Color, 32)
	colorMutex sync.RWMutex
)

func named(attr color.Attribute, tc tcell.Color) namedColor {
	return namedColor{
		colorFunc: color.New(attr).SprintFunc(),
		tcell:     tc,
	}
}

var predefinedColors = map[string]namedColor{
	"black":   named(color.FgBlack, tcell.ColorBlack),
	"red":     named(color.FgRed, tcell.ColorRed),
	"green":   named(color.FgGreen, tcell.ColorGreen),
	"yellow":  named(color.FgYellow, tcell.ColorYellow),
	"blue":    named(color.FgBlue, tcell.ColorBlue),
	"magenta": named(color.FgMagenta, tcell.ColorFuchsia),
	"cyan":    named(color.FgCyan, tcell.ColorAqua),
	"white":   named(color.FgWhite, tcell.ColorWhite),
	"default": named(color.Reset, tcell.ColorDefault),
}

// ParseColor accepts a color name ("green", "default", ...) or "#rrggbb".
func ParseColor(name string) (Color, error) {
	colorMutex.RLock()
	if cached, exists := colorCache[name]; exists {
		colorMutex.RUnlock()
		return cached, nil
	}
	colorMutex.RUnlock()

	var result Color
	if m := rgbRegex.FindStringSubmatch(name); m != nil {
		r, _ := strconv.ParseUint(m[1], 16, 8)
		g, _ := strconv.ParseUint(m[2], 16, 8)
		b, _ := strconv.ParseUint(m[3], 16, 8)
		result = rgbColor{r: uint8(r), g: uint8(g), b: uint8(b)}
	} else if predefined, exists := predefinedColors[strings.ToLower(name)]; exists {
		result = predefined
	} else {
		return nil, fmt.Errorf("unknown color: %s", name)
	}

	colorMutex.Lock()
	colorCache[name] = result
	colorMutex.Unlock()

	return result, nil
}

// MustColor is ParseColor for names known to be valid.
func MustColor(name string) Color {
	c, err := ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Colors styles the input box and its candidate popup.
type Colors struct {
	Text      Color
	Candidate Color
	Selected  Color
}

// DefaultColors matches the [colors] defaults of the config file.
func DefaultColors() Colors {
	return Colors{
		Text:      MustColor("default"),
		Candidate: MustColor("cyan"),
		Selected:  MustColor("yellow"),
	}
}

func (c Colors) textStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(c.Text.Tcell())
}

func (c Colors) candidateStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(c.Candidate.Tcell())
}

func (c Colors) selectedStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(c.Selected.Tcell()).Reverse(true)
}
