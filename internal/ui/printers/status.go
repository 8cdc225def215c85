package printers

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	identitydto "timeblocks/internal/modules/identity/dto"
	reconciledto "timeblocks/internal/modules/reconcile/dto"
)

// Status prints the countdown as a two-column table.
func Status(w io.Writer, state reconciledto.StateOutput) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	_, _ = fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint(state.Topic))

	tbl := uitable.New()
	tbl.Separator = "  "
	if state.IsValid {
		tbl.AddRow(bold.Sprint("Remaining"), color.New(color.FgHiYellow, color.Bold).Sprintf("%d days", state.RemainingDays))
		tbl.AddRow(bold.Sprint("Passed"), fmt.Sprintf("%d of %d days", state.PassedDays, state.TotalDays))
	} else {
		tbl.AddRow(bold.Sprint("Remaining"), color.New(color.FgRed).Sprint("configure valid dates to see your countdown"))
	}
	tbl.AddRow(bold.Sprint("Start"), dateOrDash(state.StartDate))
	tbl.AddRow(bold.Sprint("Target"), dateOrDash(state.TargetDate))
	tbl.AddRow(bold.Sprint("Sync"), modeColor(state).Sprint(state.ModeLabel))
	if state.DisplayName != "" {
		tbl.AddRow(bold.Sprint("Account"), state.DisplayName)
	}
	if state.Dirty {
		tbl.AddRow(bold.Sprint("Pending"), faint.Sprint("local changes not yet synced"))
	}
	if state.Notice != "" {
		tbl.AddRow(bold.Sprint("Notice"), color.New(color.FgRed).Sprint(state.Notice))
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)
}

func Identity(w io.Writer, identity identitydto.IdentityOutput) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Kind"), identity.Kind)
	tbl.AddRow(bold.Sprint("ID"), identity.ID)
	if identity.DisplayName != "" {
		tbl.AddRow(bold.Sprint("Name"), identity.DisplayName)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(w, tbl)
}

func modeColor(state reconciledto.StateOutput) *color.Color {
	switch {
	case state.Mode == reconciledto.ModeOffline:
		return color.New(color.FgRed)
	case state.Mode == reconciledto.ModeOnline && state.IdentityKind == reconciledto.IdentityVerified:
		return color.New(color.FgGreen)
	case state.Mode == reconciledto.ModeOnline:
		return color.New(color.FgYellow)
	}
	return color.New(color.Faint)
}

func dateOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
