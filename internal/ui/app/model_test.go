package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	"timeblocks/internal/ui/app"
)

type fakePort struct {
	states   chan reconciledto.StateOutput
	edits    []reconciledto.EditInput
	logins   int
	reloads  int
	loginErr error
}

func newFakePort() *fakePort {
	return &fakePort{states: make(chan reconciledto.StateOutput, 4)}
}

func (f *fakePort) Start(context.Context) error { return nil }

func (f *fakePort) State(context.Context) reconciledto.StateOutput { return reconciledto.StateOutput{} }

func (f *fakePort) Watch(context.Context) <-chan reconciledto.StateOutput { return f.states }

func (f *fakePort) Edit(_ context.Context, input reconciledto.EditInput) (reconciledto.StateOutput, error) {
	f.edits = append(f.edits, input)
	if input.Topic != nil && *input.Topic == "" {
		return reconciledto.StateOutput{}, errors.New("topic must not be empty")
	}
	return reconciledto.StateOutput{Topic: *input.Topic}, nil
}

func (f *fakePort) Login(context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakePort) Logout(context.Context) error { return nil }

func (f *fakePort) Reload(context.Context) error {
	f.reloads++
	return nil
}

func (f *fakePort) DismissNotice(context.Context) error { return nil }

func update(t *testing.T, m app.Model, msg tea.Msg) (app.Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(app.Model), cmd
}

// run feeds msg to the model and resolves the returned command once.
func run(t *testing.T, m app.Model, msg tea.Msg) (app.Model, tea.Msg) {
	t.Helper()
	m, cmd := update(t, m, msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

// typeKeys sends keystrokes without running their cursor-blink commands.
func typeKeys(t *testing.T, m app.Model, msgs ...tea.KeyMsg) app.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = update(t, m, msg)
	}
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func startedModel(t *testing.T, port *fakePort) app.Model {
	t.Helper()
	m := app.NewModel(context.Background(), port)
	msg := m.Init()()
	port.states <- reconciledto.StateOutput{Topic: "Exam", IsValid: true, TotalDays: 10, PassedDays: 2, RemainingDays: 8, ModeLabel: "cloud sync"}
	m, next := run(t, m, msg)
	m, _ = update(t, m, next)
	return m
}

func TestModelFollowsWatchedState(t *testing.T) {
	t.Parallel()

	port := newFakePort()
	m := startedModel(t, port)
	if m.State().Topic != "Exam" {
		t.Fatalf("state not applied: %+v", m.State())
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if view := m.View(); !strings.Contains(view, "8 days left") || !strings.Contains(view, "cloud sync") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestModelEditFlow(t *testing.T) {
	t.Parallel()

	port := newFakePort()
	m := startedModel(t, port)

	m = typeKeys(t, m, key("e"))
	for i := 0; i < len("Exam"); i++ {
		m = typeKeys(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = typeKeys(t, m, key("Launch"))
	m, submit := run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, done := run(t, m, submit)
	m, _ = update(t, m, done)

	if len(port.edits) != 1 || port.edits[0].Topic == nil || *port.edits[0].Topic != "Launch" {
		t.Fatalf("unexpected edits: %+v", port.edits)
	}
	if m.State().Topic != "Launch" {
		t.Fatalf("edit result not shown: %+v", m.State())
	}
}

func TestModelLoginFailureShowsStatus(t *testing.T) {
	t.Parallel()

	port := newFakePort()
	port.loginErr = errors.New("popup closed")
	m := startedModel(t, port)

	m, done := run(t, m, key("l"))
	m, _ = update(t, m, done)
	if port.logins != 1 {
		t.Fatalf("login not called")
	}
	if !strings.Contains(m.Status(), "popup closed") {
		t.Fatalf("unexpected status %q", m.Status())
	}
}

func TestModelReloadAndQuit(t *testing.T) {
	t.Parallel()

	port := newFakePort()
	m := startedModel(t, port)

	m, done := run(t, m, key("r"))
	m, _ = update(t, m, done)
	if port.reloads != 1 || m.Status() != "reload done" {
		t.Fatalf("reload not performed: reloads=%d status=%q", port.reloads, m.Status())
	}

	_, msg := run(t, m, key("q"))
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Fatalf("expected quit, got %T", msg)
	}
}
