package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	"timeblocks/internal/ui/components"
	"timeblocks/internal/ui/theme"
	countdownview "timeblocks/internal/ui/views/countdown"
)

// ─── port ────────────────────────────────────────────────────────────────────

// CountdownPort is the slice of the reconcile use-case the TUI drives.
type CountdownPort interface {
	Start(ctx context.Context) error
	State(ctx context.Context) reconciledto.StateOutput
	Watch(ctx context.Context) <-chan reconciledto.StateOutput
	Edit(ctx context.Context, input reconciledto.EditInput) (reconciledto.StateOutput, error)
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Reload(ctx context.Context) error
	DismissNotice(ctx context.Context) error
}

// ─── async messages ───────────────────────────────────────────────────────────

type watchingMsg struct {
	states <-chan reconciledto.StateOutput
	err    error
}

type stateMsg struct {
	state reconciledto.StateOutput
	ok    bool
}

type editDoneMsg struct {
	state reconciledto.StateOutput
	err   error
}

type actionDoneMsg struct {
	action string
	err    error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Edit    key.Binding
	Login   key.Binding
	Logout  key.Binding
	Reload  key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Login:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in")),
		Logout:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss notice")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Login, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Edit, k.Dismiss},
		{k.Login, k.Logout, k.Reload},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It mirrors the latest session state
// pushed by the reconciler and turns keys into use-case calls.
type Model struct {
	ctx    context.Context
	port   CountdownPort
	states <-chan reconciledto.StateOutput

	state    reconciledto.StateOutput
	form     components.EditForm
	keys     keyMap
	help     help.Model
	showHelp bool
	status   string
	width    int
	height   int
}

func NewModel(ctx context.Context, port CountdownPort) Model {
	return Model{
		ctx:    ctx,
		port:   port,
		form:   components.NewEditForm(),
		keys:   defaultKeys(),
		help:   help.New(),
		status: "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return m.startCmd()
}

// State is the snapshot currently on screen.
func (m Model) State() reconciledto.StateOutput { return m.state }

// Status is the transient message in the status bar.
func (m Model) Status() string { return m.status }

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The form intercepts all input while open.
	if m.form.Visible() {
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.form.SetWidth(min(msg.Width-4, 60))

	case watchingMsg:
		if msg.err != nil {
			m.status = "start failed: " + msg.err.Error()
			return m, nil
		}
		m.states = msg.states
		m.status = "ready"
		return m, waitForState(m.states)

	case stateMsg:
		if !msg.ok {
			m.states = nil
			return m, nil
		}
		m.state = msg.state
		return m, waitForState(m.states)

	case editDoneMsg:
		if msg.err != nil {
			m.status = "edit rejected: " + msg.err.Error()
			return m, nil
		}
		m.state = msg.state
		m.status = "saved locally"

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.action + " failed: " + msg.err.Error()
		} else {
			m.status = msg.action + " done"
		}

	case components.FormSubmitMsg:
		if isEmpty(msg.Input) {
			m.status = "nothing changed"
			return m, nil
		}
		return m, m.editCmd(msg.Input)

	case components.FormCancelMsg:
		m.status = "edit cancelled"

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Edit):
			return m, m.form.Open(m.state.Topic, m.state.StartDate, m.state.TargetDate)
		case key.Matches(msg, m.keys.Login):
			m.status = "logging in…"
			return m, m.actionCmd("login", m.port.Login)
		case key.Matches(msg, m.keys.Logout):
			return m, m.actionCmd("logout", m.port.Logout)
		case key.Matches(msg, m.keys.Reload):
			m.status = "reconnecting…"
			return m, m.actionCmd("reload", m.port.Reload)
		case key.Matches(msg, m.keys.Dismiss):
			return m, m.actionCmd("dismiss", m.port.DismissNotice)
		}
	}
	return m, nil
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	statusBar := m.renderStatusBar()
	contentH := max(1, m.height-lipgloss.Height(statusBar))

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.form.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.form.View())
	default:
		content = theme.App.Render(countdownview.Render(m.state, m.width-4))
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, statusBar)
}

func (m Model) renderStatusBar() string {
	left := theme.Muted.Render(m.status)
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Width(m.width).Render(bar)
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.port.Start(m.ctx); err != nil {
			return watchingMsg{err: err}
		}
		return watchingMsg{states: m.port.Watch(m.ctx)}
	}
}

func waitForState(states <-chan reconciledto.StateOutput) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		return stateMsg{state: state, ok: ok}
	}
}

func (m Model) editCmd(input reconciledto.EditInput) tea.Cmd {
	return func() tea.Msg {
		state, err := m.port.Edit(m.ctx, input)
		return editDoneMsg{state: state, err: err}
	}
}

func (m Model) actionCmd(action string, call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: call(m.ctx)}
	}
}

func isEmpty(input reconciledto.EditInput) bool {
	return input.Topic == nil && input.StartDate == nil && input.TargetDate == nil
}
