package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/manifoldco/promptui"
)

var (
	faint = promptui.Styler(promptui.FGFaint)       //nolint:gochecknoglobals
	bold  = promptui.Styler(promptui.FGBold)        //nolint:gochecknoglobals
	red   = promptui.Styler(promptui.FGRed)         //nolint:gochecknoglobals
	green = promptui.Styler(promptui.FGGreen)       //nolint:gochecknoglobals
	warn  = promptui.Styler(promptui.FGYellow)      //nolint:gochecknoglobals
	arrow = promptui.Styler(promptui.FGCyan)("->") //nolint:gochecknoglobals
)

// StepPrinter writes one marked line per step and a boxed summary at the end
// of a verification run. It implements statemachine.Logger.
type StepPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	plain  bool
	passed int
	failed int
}

var _ statemachine.Logger = (*StepPrinter)(nil)

// PrinterOption configures a StepPrinter.
type PrinterOption func(*StepPrinter)

// PlainMarkers disables ANSI colours.
func PlainMarkers() PrinterOption {
	return func(p *StepPrinter) {
		p.plain = true
	}
}

// SummaryWidth sets the summary banner width; zero means the terminal width.
func SummaryWidth(width int) PrinterOption {
	return func(p *StepPrinter) {
		p.width = width
	}
}

// NewStepPrinter creates a printer writing to out.
func NewStepPrinter(out io.Writer, opts ...PrinterOption) *StepPrinter {
	p := &StepPrinter{out: out}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *StepPrinter) style(f func(any) string, s string) string {
	if p.plain {
		return s
	}

	return f(s)
}

func (p *StepPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *StepPrinter) edge(from, to string) string {
	link := arrow
	if p.plain {
		link = "->"
	}

	return fmt.Sprintf("%s %s %s", statemachine.ShortName(from), link, statemachine.ShortName(to))
}

func (p *StepPrinter) MoveStarted(_ context.Context, from, to string, path []string) {
	route := make([]string, 0, len(path))
	for _, name := range path {
		route = append(route, statemachine.ShortName(name))
	}

	p.printf("%s %s (%s)\n",
		p.style(bold, "move"),
		p.edge(from, to),
		p.style(faint, strings.Join(route, " > ")))
}

func (p *StepPrinter) StepStarted(context.Context, string, string) {}

func (p *StepPrinter) StepSucceeded(_ context.Context, from, to string, duration time.Duration) {
	p.mu.Lock()
	p.passed++
	p.mu.Unlock()

	p.printf("  %s %s %s\n",
		p.style(green, "[PASS]"),
		p.edge(from, to),
		p.style(faint, duration.Round(time.Millisecond).String()))
}

func (p *StepPrinter) StepFailed(_ context.Context, from, to string, duration time.Duration, err error) {
	p.mu.Lock()
	p.failed++
	p.mu.Unlock()

	p.printf("  %s %s %s\n      %s\n",
		p.style(red, "[FAIL]"),
		p.edge(from, to),
		p.style(faint, duration.Round(time.Millisecond).String()),
		err)
}

func (p *StepPrinter) TargetSkipped(_ context.Context, target string, err error) {
	p.printf("  %s %s: %s\n", p.style(warn, "[SKIP]"), statemachine.ShortName(target), err)
}

func (p *StepPrinter) RunFinished(ctx context.Context, summary statemachine.RunSummary) {
	verdict := "PASSED"
	if !summary.Passed() {
		verdict = "FAILED"
	}

	lines := []string{
		"Verification " + verdict,
		fmt.Sprintf("%d states visited, %d transitions exercised", summary.Visited, summary.Transitions),
		fmt.Sprintf("%d steps passed, %d failed in %s",
			p.Passed(), p.Failed(), summary.Duration.Round(time.Millisecond)),
	}

	if !summary.Passed() {
		lines = append(lines, "failed: "+strings.Join(summary.ErrorStates, ", "))
	}

	text := strings.Join(lines, "\n")

	var banner string
	if p.width > 0 {
		banner = Banner(text, p.width, AlignLeft)
	} else {
		banner = BannerAutoWidth(ctx, text, AlignLeft)
	}

	p.printf("%s\n", strings.TrimSuffix(banner, "\n"))
}

// Passed returns the number of successful steps so far.
func (p *StepPrinter) Passed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.passed
}

// Failed returns the number of failed steps so far.
func (p *StepPrinter) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.failed
}
