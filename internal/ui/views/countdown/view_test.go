package countdown_test

import (
	"strings"
	"testing"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	countdownview "timeblocks/internal/ui/views/countdown"
)

func TestGridHighlightsPassedDays(t *testing.T) {
	t.Parallel()

	grid := countdownview.Grid(3, 10, 80)
	if got := strings.Count(grid, "■"); got != 3 {
		t.Fatalf("passed blocks = %d, want 3", got)
	}
	if got := strings.Count(grid, "□"); got != 7 {
		t.Fatalf("remaining blocks = %d, want 7", got)
	}
	if strings.Contains(grid, "\n") {
		t.Fatalf("ten blocks should fit one row: %q", grid)
	}
}

func TestGridWrapsToWidth(t *testing.T) {
	t.Parallel()

	grid := countdownview.Grid(0, 12, 10)
	if rows := strings.Count(grid, "\n") + 1; rows != 3 {
		t.Fatalf("rows = %d, want 3:\n%s", rows, grid)
	}
}

func TestGridSummarizesLongRanges(t *testing.T) {
	t.Parallel()

	grid := countdownview.Grid(1825, 3650, 40)
	if got := strings.Count(grid, "■") + strings.Count(grid, "□"); got != 40 {
		t.Fatalf("summary bar width = %d, want 40", got)
	}
	if got := strings.Count(grid, "■"); got != 20 {
		t.Fatalf("summary filled = %d, want 20", got)
	}
}

func TestRenderInvalidRangeShowsPlaceholder(t *testing.T) {
	t.Parallel()

	out := countdownview.Render(reconciledto.StateOutput{
		Topic:     "Exam",
		Mode:      reconciledto.ModeOffline,
		ModeLabel: "offline",
	}, 60)
	if !strings.Contains(out, countdownview.InvalidRangeHint) {
		t.Fatalf("missing placeholder:\n%s", out)
	}
	if strings.Contains(out, "■") || strings.Contains(out, "□") {
		t.Fatalf("invalid range should not draw blocks:\n%s", out)
	}
	if !strings.Contains(out, "r: reload") {
		t.Fatalf("offline state should offer reload:\n%s", out)
	}
}

func TestRenderValidState(t *testing.T) {
	t.Parallel()

	out := countdownview.Render(reconciledto.StateOutput{
		Topic:         "Launch",
		StartDate:     "2025-01-01",
		TargetDate:    "2025-01-11",
		TotalDays:     10,
		PassedDays:    4,
		RemainingDays: 6,
		IsValid:       true,
		Mode:          reconciledto.ModeOnline,
		ModeLabel:     "cloud sync",
		IdentityKind:  reconciledto.IdentityVerified,
		Saving:        true,
		Notice:        "Login failed",
	}, 60)
	for _, want := range []string{"Launch", "6 days left", "4 of 10 days passed", "cloud sync", "saving", "Login failed", "x: dismiss"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHeadlineOnTargetDay(t *testing.T) {
	t.Parallel()

	got := countdownview.Headline(reconciledto.StateOutput{IsValid: true, TotalDays: 5, PassedDays: 5})
	if !strings.Contains(got, "Today is the day") {
		t.Fatalf("unexpected headline %q", got)
	}
}
