package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/router"
)

type stubSource struct {
	ta    *analytics.TestAnalytics
	board []analytics.Attempt
	mine  []analytics.Attempt
	err   error
}

func (s stubSource) Get(context.Context, string) (*analytics.TestAnalytics, error) {
	return s.ta, s.err
}

func (s stubSource) Leaderboard(context.Context, string, int) ([]analytics.Attempt, error) {
	return s.board, nil
}

func (s stubSource) StudentAttempts(context.Context, string) ([]analytics.Attempt, error) {
	return s.mine, nil
}

func loaded(src Source) *HistoryScreen {
	s := New(src, "test1", "alice")
	s.Update(s.Init()())
	return s
}

func TestHistoryScreen_Standings(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := loaded(stubSource{
		ta: &analytics.TestAnalytics{NumberOfAttempts: 3, AverageScore: 16.0 / 3, AverageTimeTaken: 9,
			TopperScore: 8, TopperStudentName: "Bob"},
		board: []analytics.Attempt{
			{StudentID: "bob", StudentName: "Bob", Score: 8, TimeTakenMinutes: 7},
			{StudentID: "alice", StudentName: "Alice", Score: 4, TimeTakenMinutes: 10},
		},
		mine: []analytics.Attempt{
			{TestID: "test1", Score: 4, SubmittedAt: at},
			{TestID: "other", Score: 12, SubmittedAt: at},
		},
	})

	if len(s.mine) != 1 {
		t.Fatalf("own attempts = %d, want only this test's", len(s.mine))
	}
	view := s.View(100, 30)
	for _, want := range []string{"3 attempts", "5.33", "Top score 8 by Bob", "Alice", "Mar 01, 2026"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHistoryScreen_Empty(t *testing.T) {
	s := loaded(stubSource{})
	if !strings.Contains(s.View(80, 24), "No attempts recorded") {
		t.Error("expected empty state")
	}
}

func TestHistoryScreen_Error(t *testing.T) {
	s := loaded(stubSource{err: errors.New("db down")})
	if !strings.Contains(s.View(80, 24), "db down") {
		t.Error("expected error")
	}
}

func TestHistoryScreen_Back(t *testing.T) {
	s := loaded(stubSource{})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("esc should pop")
	}
}
