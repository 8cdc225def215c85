package countdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	"timeblocks/internal/ui/theme"
)

const (
	passedGlyph    = "■"
	remainingGlyph = "□"
	// Ranges longer than this render as a summary bar instead of one block per day.
	maxBlocks = 1000
)

const InvalidRangeHint = "Configure valid dates to see your countdown"

// Render draws the whole countdown screen for one state snapshot.
func Render(state reconciledto.StateOutput, width int) string {
	if width < 10 {
		width = 80
	}
	sections := []string{
		theme.Title.Render(state.Topic),
		Headline(state),
	}
	if state.IsValid {
		sections = append(sections,
			theme.Muted.Render(fmt.Sprintf("%s → %s · %d of %d days passed",
				state.StartDate, state.TargetDate, state.PassedDays, state.TotalDays)),
			"",
			Grid(state.PassedDays, state.TotalDays, width),
		)
	}
	sections = append(sections, "", StatusLine(state))
	if line := NoticeLine(state); line != "" {
		sections = append(sections, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func Headline(state reconciledto.StateOutput) string {
	if !state.IsValid {
		return theme.Alert.Render(InvalidRangeHint)
	}
	switch state.RemainingDays {
	case 0:
		return theme.Hot.Render("Today is the day")
	case 1:
		return theme.Hot.Render("1 day left")
	default:
		return theme.Hot.Render(fmt.Sprintf("%d days left", state.RemainingDays))
	}
}

// Grid lays out one block per day, passed days first, wrapped to width.
func Grid(passed, total, width int) string {
	if total <= 0 {
		return ""
	}
	if total > maxBlocks {
		return summaryBar(passed, total, width)
	}
	columns := max(1, width/2)
	var sb strings.Builder
	for day := 0; day < total; day++ {
		if day > 0 && day%columns == 0 {
			sb.WriteByte('\n')
		} else if day > 0 {
			sb.WriteByte(' ')
		}
		if day < passed {
			sb.WriteString(theme.PassedBlock.Render(passedGlyph))
		} else {
			sb.WriteString(theme.RemainingBlock.Render(remainingGlyph))
		}
	}
	return sb.String()
}

func summaryBar(passed, total, width int) string {
	filled := passed * width / total
	return theme.PassedBlock.Render(strings.Repeat(passedGlyph, filled)) +
		theme.RemainingBlock.Render(strings.Repeat(remainingGlyph, width-filled))
}

func StatusLine(state reconciledto.StateOutput) string {
	var style lipgloss.Style
	switch state.Mode {
	case reconciledto.ModeOnline:
		style = theme.ModeLocal
		if state.IdentityKind == reconciledto.IdentityVerified {
			style = theme.ModeCloud
		}
	case reconciledto.ModeOffline:
		style = theme.ModeOffline
	default:
		style = theme.Muted
	}
	line := style.Render("● " + state.ModeLabel)
	if state.DisplayName != "" {
		line += theme.Muted.Render("  " + state.DisplayName)
	}
	if state.Saving {
		line += "  " + theme.Muted.Render("saving…")
	}
	if state.Mode == reconciledto.ModeOffline {
		line += "  " + theme.Muted.Render("r: reload")
	}
	return line
}

func NoticeLine(state reconciledto.StateOutput) string {
	if state.Notice == "" {
		return ""
	}
	return theme.Alert.Render("! "+state.Notice) + theme.Muted.Render("  x: dismiss")
}
