package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/amp-labs/statecrawler/envutil"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

// Alignment of banner lines.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const (
	// DefaultTerminalWidth is used when the terminal size cannot be read.
	DefaultTerminalWidth = 80

	// EnvNoBanner disables boxed banners when set to true.
	EnvNoBanner = "CRAWLER_NO_BANNER"

	framePadding = 2
)

func bannersSuppressed(ctx context.Context) bool {
	return envutil.Bool(ctx, EnvNoBanner, envutil.Default(false)).ValueOrElse(false)
}

func terminalWidth() int {
	_, cols, err := TerminalDimensions()
	if err != nil || cols == 0 {
		return DefaultTerminalWidth
	}

	return int(cols) //nolint:gosec // Terminal width is bounded by screen size
}

// DividerAutoWidth returns a divider as wide as the terminal.
func DividerAutoWidth() string {
	return Divider(terminalWidth())
}

// Divider returns a horizontal rule of the given width, newline terminated.
func Divider(width int) string {
	if width < framePadding {
		return "\n"
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-framePadding) + dividerRight + "\n"
}

// BannerAutoWidth boxes s at the terminal width. With CRAWLER_NO_BANNER set
// the text is returned as-is.
func BannerAutoWidth(ctx context.Context, s string, align Alignment) string {
	if bannersSuppressed(ctx) {
		return s + "\n"
	}

	return Banner(s, terminalWidth(), align)
}

// Banner draws s inside a box of the given width. Lines that do not fit are
// truncated with an ellipsis. An empty string is returned for a width or
// alignment that cannot be drawn.
func Banner(s string, width int, align Alignment) string {
	if width <= framePadding || align < AlignLeft || align > AlignRight {
		return ""
	}

	inner := width - framePadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		parts = append(parts, boxSide+pad(line, inner, align)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n")
}

// graphicLen counts the printable runes of s.
func graphicLen(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

// truncate keeps the first n printable runes of s.
func truncate(s string, n int) string {
	var (
		out   strings.Builder
		count int
	)

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		out.WriteRune(r)
	}

	return out.String()
}

func pad(text string, width int, align Alignment) string {
	length := graphicLen(text)
	if length > width {
		text = truncate(text, width-1) + ellipsis
		length = width
	}

	diff := width - length

	switch align {
	case AlignLeft:
		return text + strings.Repeat(" ", diff)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		left := diff / 2 //nolint:mnd

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	}
}

func sttySize() (string, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return "", err
	}

	defer func() { _ = tty.Close() }()

	// Outputs: "rows columns"
	cmd := exec.Command("stty", "size")
	cmd.Stdin = tty

	out, err := cmd.Output()

	return string(out), err
}

func parseSize(input string) (uint, uint, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 { //nolint:mnd
		return 0, 0, fmt.Errorf("unexpected stty output %q", input) //nolint:err113
	}

	rows, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, 0, err
	}

	cols, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, 0, err
	}

	return uint(rows), uint(cols), nil
}

// TerminalDimensions returns (rows, cols, err).
func TerminalDimensions() (uint, uint, error) {
	output, err := sttySize()
	if err != nil {
		return 0, 0, err
	}

	return parseSize(output)
}
