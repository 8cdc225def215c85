package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	"timeblocks/internal/ui/theme"
)

// FormSubmitMsg carries only the fields the user changed.
type FormSubmitMsg struct{ Input reconciledto.EditInput }

// FormCancelMsg is emitted when the user presses esc.
type FormCancelMsg struct{}

const (
	fieldTopic = iota
	fieldStart
	fieldTarget
	fieldCount
)

var (
	formStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Foreground(theme.Text).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(theme.Subtext0).Width(8)
)

var fieldLabels = [fieldCount]string{"Topic", "Start", "Target"}

// EditForm edits the three countdown fields with one textinput each.
type EditForm struct {
	inputs  [fieldCount]textinput.Model
	initial [fieldCount]string
	focus   int
	visible bool
	width   int
}

func NewEditForm() EditForm {
	var f EditForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 128
		if i != fieldTopic {
			ti.Placeholder = "YYYY-MM-DD"
			ti.CharLimit = 10
		}
		f.inputs[i] = ti
	}
	return f
}

func (f EditForm) Visible() bool { return f.visible }

func (f *EditForm) SetWidth(w int) { f.width = w }

// Open shows the form prefilled with the current values.
func (f *EditForm) Open(topic, start, target string) tea.Cmd {
	f.visible = true
	f.initial = [fieldCount]string{topic, start, target}
	for i := range f.inputs {
		f.inputs[i].SetValue(f.initial[i])
		f.inputs[i].CursorEnd()
		f.inputs[i].Blur()
	}
	f.focus = fieldTopic
	return f.inputs[f.focus].Focus()
}

func (f EditForm) Update(msg tea.Msg) (EditForm, tea.Cmd) {
	if !f.visible {
		return f, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			f.close()
			return f, func() tea.Msg { return FormCancelMsg{} }
		case "tab", "down":
			return f, f.move(1)
		case "shift+tab", "up":
			return f, f.move(-1)
		case "enter":
			input := f.changes()
			f.close()
			return f, func() tea.Msg { return FormSubmitMsg{Input: input} }
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f EditForm) View() string {
	if !f.visible {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Edit countdown") + "\n\n")
	for i, input := range f.inputs {
		sb.WriteString(labelStyle.Render(fieldLabels[i]) + input.View() + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("tab: next field  enter: save  esc: cancel"))

	w := f.width
	if w < 30 {
		w = 48
	}
	return formStyle.Width(w - 2).Render(sb.String())
}

func (f *EditForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *EditForm) close() {
	f.visible = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f EditForm) changes() reconciledto.EditInput {
	var out reconciledto.EditInput
	targets := [fieldCount]**string{&out.Topic, &out.StartDate, &out.TargetDate}
	for i, input := range f.inputs {
		value := strings.TrimSpace(input.Value())
		if value == f.initial[i] {
			continue
		}
		*targets[i] = &value
	}
	return out
}
