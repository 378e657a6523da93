package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	got     []tea.Msg
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	s.got = append(s.got, msg)
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }

func TestPush(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	s2 := &stubScreen{title: "review"}
	r.Push(s2)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "review" {
		t.Errorf("expected active 'review', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPop(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	s2 := &stubScreen{title: "review"}
	r.Push(s2)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "practice" {
		t.Errorf("expected active 'practice', got %q", r.Active().Title())
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
}

func TestReplace(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	s2 := &stubScreen{title: "review"}
	r.Replace(s2)

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.Active().Title() != "review" {
		t.Errorf("expected active 'review', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on replaced screen")
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	s2 := &stubScreen{title: "review"}
	r.Update(ReplaceScreenMsg{Screen: s2})

	if r.Active().Title() != "review" {
		t.Errorf("expected active 'review', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
}

func TestReplacePreservesStackDepth(t *testing.T) {
	s1 := &stubScreen{title: "practice"}
	r := New(s1)

	s2 := &stubScreen{title: "review"}
	r.Push(s2)

	s3 := &stubScreen{title: "history"}
	r.Replace(s3)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "history" {
		t.Errorf("expected active 'history', got %q", r.Active().Title())
	}
}

type tickMsg struct{}

func TestUpdateForwardsToActiveOnly(t *testing.T) {
	bottom := &stubScreen{title: "practice"}
	r := New(bottom)
	top := &stubScreen{title: "review"}
	r.Push(top)

	r.Update(tickMsg{})

	if len(top.got) != 1 {
		t.Errorf("active screen got %d messages, want 1", len(top.got))
	}
	if len(bottom.got) != 0 {
		t.Errorf("covered screen got %d messages, want 0", len(bottom.got))
	}
}

func TestNavigationMessagesAreNotForwarded(t *testing.T) {
	s := &stubScreen{title: "practice"}
	r := New(s)

	r.Update(PushScreenMsg{Screen: &stubScreen{title: "review"}})
	r.Update(PopScreenMsg{})

	if len(s.got) != 0 {
		t.Errorf("screen saw %d navigation messages", len(s.got))
	}
	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
}
