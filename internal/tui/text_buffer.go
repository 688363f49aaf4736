package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const extraCapacity = 16

type TextCell struct {
	Rune  rune
	Style tcell.Style
}

// TextBuffer holds styled rows at their logical coordinates. Rows wider
// than the screen are wrapped only when written to it.
type TextBuffer struct {
	content [][]TextCell // [row][column]
	width   int
	height  int
}

func NewTextBuffer(width, height int) *TextBuffer {
	return &TextBuffer{
		width:  width,
		height: height,
	}
}

func (tb *TextBuffer) String() string {
	var sb strings.Builder
	for y, row := range tb.content {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, cell := range row {
			if cell.Rune != 0 {
				sb.WriteRune(cell.Rune)
			}
		}
	}
	return sb.String()
}

// Resize changes the wrap width and visible height. It reports whether
// anything changed.
func (tb *TextBuffer) Resize(width, height int) bool {
	if tb.width == width && tb.height == height {
		return false
	}
	tb.width = width
	tb.height = height
	return true
}

// Clear drops all rows
func (tb *TextBuffer) Clear() {
	tb.content = tb.content[:0]
}

// SetCell sets a character at the given logical coordinates, growing the
// buffer as needed.
func (tb *TextBuffer) SetCell(x, y int, r rune, style tcell.Style) {
	for len(tb.content) <= y {
		tb.content = append(tb.content, nil)
	}
	if len(tb.content[y]) <= x {
		newRow := make([]TextCell, x+extraCapacity)
		copy(newRow, tb.content[y])
		tb.content[y] = newRow
	}

	tb.content[y][x] = TextCell{
		Rune:  r,
		Style: style,
	}
}

// SetString writes text starting at x and returns the column after it.
// Zero-width runes are skipped.
func (tb *TextBuffer) SetString(x, y int, text string, style tcell.Style) int {
	currentX := x
	for _, r := range text {
		width := runewidth.RuneWidth(r)
		if width <= 0 {
			continue
		}
		tb.SetCell(currentX, y, r, style)
		currentX += width
	}
	return currentX
}

func lastCell(row []TextCell) int {
	maxX := -1
	for x, cell := range row {
		if cell.Rune != 0 {
			maxX = x
		}
	}
	return maxX
}

func (tb *TextBuffer) dumpSnapshot() error {
	unixMilli := time.Now().UnixMilli()

	appDir := filepath.Join(xdg.StateHome, "tlmode")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return err
	}
	filePath := filepath.Join(appDir, fmt.Sprintf("snapshot-%d.txt", unixMilli))

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close() // nolint

	_, err = f.WriteString(tb.String())
	return err
}

// WriteToScreen writes the rows to screen with wrapping and returns the
// number of screen lines used.
func (tb *TextBuffer) WriteToScreen(screen tcell.Screen) int {
	if tb.width <= 0 {
		return 0
	}

	if IsDebugMode() {
		tb.dumpSnapshot() // nolint
	}

	screenY := 0
	for y := 0; y < len(tb.content); y++ {
		if screenY >= tb.height {
			break
		}

		row := tb.content[y]
		maxX := lastCell(row)
		if maxX == -1 {
			screenY++
			continue
		}

		for x := 0; x <= maxX; x++ {
			screenX := x % tb.width
			if x > 0 && screenX == 0 {
				screenY++
				if screenY >= tb.height {
					break
				}
			}

			cell := row[x]
			if cell.Rune != 0 && cell.Rune != ' ' {
				screen.SetContent(screenX, screenY, cell.Rune, nil, cell.Style)
			}
		}

		screenY++
	}
	return min(screenY, tb.height)
}

// IsDebugMode reports whether TLMODE_DEBUG is set to true or 1.
func IsDebugMode() bool {
	isDebug := strings.ToLower(os.Getenv("TLMODE_DEBUG"))
	return isDebug == "true" || isDebug == "1"
}
