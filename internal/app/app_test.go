package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/router"
	"github.com/abhisek/examprep/internal/screen"
)

type stubScreen struct {
	title   string
	guarded bool
	msgs    []tea.Msg
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	s.msgs = append(s.msgs, msg)
	return s, nil
}
func (s *stubScreen) View(width, height int) string { return s.title }
func (s *stubScreen) Title() string                 { return s.title }
func (s *stubScreen) Status() string                { return "12:00" }
func (s *stubScreen) Guarded() bool                 { return s.guarded }

func esc() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeyEscape} }

func TestEscPopsUnguardedScreen(t *testing.T) {
	m := NewAppModel(&stubScreen{title: "root"})
	m.router.Push(&stubScreen{title: "top"})

	_, cmd := m.Update(esc())
	if cmd == nil {
		t.Fatal("expected pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("esc should pop an unguarded screen")
	}
}

func TestEscForwardedToGuardedScreen(t *testing.T) {
	guarded := &stubScreen{title: "exam", guarded: true}
	m := NewAppModel(&stubScreen{title: "root"})
	m.router.Push(guarded)

	m.Update(esc())
	if m.router.Depth() != 2 {
		t.Error("guarded screen should stay on the stack")
	}
	if len(guarded.msgs) != 1 {
		t.Errorf("guarded screen got %d messages, want 1", len(guarded.msgs))
	}
}

func TestEscForwardedAtRoot(t *testing.T) {
	root := &stubScreen{title: "root"}
	m := NewAppModel(root)
	m.Update(esc())
	if len(root.msgs) != 1 {
		t.Error("root screen should receive esc")
	}
}

func TestWindowSize(t *testing.T) {
	m := NewAppModel(&stubScreen{title: "Practice"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	am := updated.(AppModel)
	if am.width != 120 || am.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", am.width, am.height)
	}
	if !am.View().AltScreen {
		t.Error("expected alt screen")
	}
}
