package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amp-labs/statecrawler/envutil"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner(t *testing.T) {
	t.Parallel()

	out := Banner("hello\nworld", 11, AlignLeft)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "╒═════════╕", lines[0])
	assert.Equal(t, "│hello    │", lines[1])
	assert.Equal(t, "│world    │", lines[2])
	assert.Equal(t, "└─────────┘", lines[3])

	assert.Equal(t, "│  abc  │", strings.Split(Banner("abc", 9, AlignCenter), "\n")[1])
	assert.Equal(t, "│    abc│", strings.Split(Banner("abc", 9, AlignRight), "\n")[1])
	assert.Equal(t, "│abcdefg…│", strings.Split(Banner("abcdefghijk", 10, AlignLeft), "\n")[1])

	assert.Empty(t, Banner("x", 2, AlignLeft))
	assert.Empty(t, Banner("x", 10, Alignment(7)))
}

func TestDivider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "┠───┨\n", Divider(5))
	assert.Equal(t, "\n", Divider(1))
}

func TestBannerSuppressed(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), EnvNoBanner, "true")
	assert.Equal(t, "plain\n", BannerAutoWidth(ctx, "plain", AlignCenter))
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	rows, cols, err := parseSize("24 80\n")
	require.NoError(t, err)
	assert.Equal(t, uint(24), rows)
	assert.Equal(t, uint(80), cols)

	_, _, err = parseSize("garbage")
	require.Error(t, err)
}

func TestSortStates(t *testing.T) {
	t.Parallel()

	got := sortStates([]string{"shop.Item10", "shop.Item2", "", "shop.Cart", "shop.Item2"})
	assert.Equal(t, []string{"shop.Cart", "shop.Item2", "shop.Item10"}, got)

	search := stateSearcher(got)
	assert.True(t, search("item1", 2))
	assert.False(t, search("item1", 1))
	assert.False(t, search("cart", 5))
}

func TestSelectStateEmpty(t *testing.T) {
	t.Parallel()

	_, err := Stdio().SelectState("Move to", nil)
	require.ErrorIs(t, err, ErrNothingToSelect)
}

func TestStepPrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := context.Background()
	p := NewStepPrinter(&buf, PlainMarkers(), SummaryWidth(60))

	p.MoveStarted(ctx, statemachine.EntryPointName, "shop.Cart", []string{statemachine.EntryPointName, "shop.Home", "shop.Cart"})
	p.StepSucceeded(ctx, "shop.Home", "shop.Cart", 1500*time.Microsecond)
	p.StepFailed(ctx, "shop.Cart", "shop.Checkout", time.Millisecond, errors.New("boom"))
	p.TargetSkipped(ctx, "shop.Paid", errors.New("no route"))
	p.RunFinished(ctx, statemachine.RunSummary{
		Visited:     2,
		Transitions: 1,
		ErrorStates: []string{"shop.Checkout", "shop.Paid"},
		Duration:    time.Second,
	})

	out := buf.String()
	assert.Contains(t, out, "[PASS] Home -> Cart 2ms")
	assert.Contains(t, out, "[FAIL] Cart -> Checkout 1ms")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "[SKIP] Paid: no route")
	assert.Contains(t, out, "Verification FAILED")
	assert.Contains(t, out, "failed: shop.Checkout, shop.Paid")
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, 1, p.Passed())
	assert.Equal(t, 1, p.Failed())
}
