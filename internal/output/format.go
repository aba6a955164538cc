package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// FormatBytes renders a byte count in IEC units.
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatSize renders a size field from a snapshot. Plain byte counts are
// humanized; anything else (sentinels, wget's own "1.2M") is shown as is.
func FormatSize(v string) string {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return v
	}
	return fmt.Sprintf("%s (%s bytes)", humanize.IBytes(n), humanize.Comma(int64(n)))
}

// FormatPercent renders a snapshot percent, where a negative value means
// unknown.
func FormatPercent(pct int) string {
	if pct < 0 {
		return "unknown"
	}
	return strconv.Itoa(pct) + "%"
}

// ProgressBar renders a bar for pct (0-100, negative for unknown).
func ProgressBar(pct, width int) string {
	if width <= 0 {
		width = 30
	}
	if pct < 0 {
		return debugStyle.Render(StyleSymbols["bullet"] + strings.Repeat(StyleSymbols["dot"], width) + StyleSymbols["bullet"] + " ?")
	}
	pct = min(pct, 100)
	filled := max(0, min(pct*width/100, width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %d%%", bar, pct))
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

// truncate shortens text to fit in width runes.
func truncate(text string, width int) string {
	if width <= 3 || utf8.RuneCountInString(text) <= width {
		return text
	}
	runes := []rune(text)
	return string(runes[:width-3]) + "..."
}
