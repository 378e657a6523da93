package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/router"
	"github.com/abhisek/examprep/internal/scoring"
	"github.com/abhisek/examprep/internal/screens/history"
	sess "github.com/abhisek/examprep/internal/session"
)

type stubExplainer struct {
	enabled bool
	exps    []explain.Explanation
	err     error
	calls   int
	answers map[string]string
}

func (e *stubExplainer) Enabled() bool { return e.enabled }

func (e *stubExplainer) ForAnswers(_ context.Context, _ []question.Question, answers map[string]string) ([]explain.Explanation, error) {
	e.calls++
	e.answers = answers
	return e.exps, e.err
}

func testReview(explainer Explainer) *ReviewScreen {
	qs := []question.Question{
		{ID: "q1", Text: "Unit of force?", Explanation: "F = ma",
			Body: question.MultipleChoice{Options: []string{"Joule", "Newton", "Watt", "Pascal"}, Correct: "Newton"}},
		{ID: "q2", Text: "6 x 7?", Body: question.Numerical{Correct: 42}},
		{ID: "q3", Text: "Speed of light?", Body: question.Numerical{Correct: 3e8}},
	}
	answers := map[string]string{"q1": "Joule", "q2": "42"}
	out := exam.Outcome{
		AttemptID:        "a1",
		Trigger:          exam.TriggerManual,
		Result:           scoring.Evaluate(qs, answers, scoring.DefaultScheme()),
		TimeTakenMinutes: 12.5,
		Recorded:         true,
	}
	return New(sess.Snapshot{Questions: qs}, out, explainer)
}

func TestReviewScreen_Display(t *testing.T) {
	s := testReview(nil)
	if cmd := s.Init(); cmd != nil {
		t.Error("no explainer means nothing to fetch")
	}
	view := s.View(100, 40)
	for _, want := range []string{"Score 3 / 12", "12.5 min", "Unit of force?", "F = ma", "✗"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestReviewScreen_UnrecordedNotice(t *testing.T) {
	s := testReview(nil)
	s.outcome.Recorded = false
	s.outcome.AggregateQueued = true
	if !strings.Contains(s.View(120, 40), "It will be retried") {
		t.Error("expected retry notice")
	}
}

func TestReviewScreen_TimerHeading(t *testing.T) {
	s := testReview(nil)
	s.outcome.Trigger = exam.TriggerTimer
	if !strings.Contains(s.View(100, 40), "Time's up") {
		t.Error("expected time-up heading")
	}
}

func TestReviewScreen_Navigation(t *testing.T) {
	s := testReview(nil)
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if s.cursor != 2 {
		t.Errorf("cursor = %d, want 2", s.cursor)
	}
	if !strings.Contains(s.View(100, 40), "not answered") {
		t.Error("unanswered numerical should say so")
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestReviewScreen_Explanations(t *testing.T) {
	e := &stubExplainer{enabled: true, exps: []explain.Explanation{
		{QuestionID: "q1", Given: "Joule", Correct: "Newton", Text: "Joule measures energy.",
			Steps: []string{"Force is mass times acceleration."}, Misconception: "energy vs force"},
	}}
	s := testReview(e)

	cmd := s.Init()
	if cmd == nil {
		t.Fatal("expected an explanation fetch")
	}
	if !strings.Contains(s.View(100, 40), "Generating") {
		t.Error("expected pending state")
	}

	s.Update(cmd())
	if e.calls != 1 || e.answers["q1"] != "Joule" {
		t.Errorf("calls = %d, answers = %v", e.calls, e.answers)
	}
	view := s.View(100, 40)
	for _, want := range []string{"Joule measures energy.", "1. Force is mass", "energy vs force"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestReviewScreen_ExplanationsFailed(t *testing.T) {
	e := &stubExplainer{enabled: true, err: errors.New("provider down")}
	s := testReview(e)
	s.Update(s.Init()())
	if !strings.Contains(s.View(100, 40), "provider down") {
		t.Error("expected error message")
	}
}

func TestReviewScreen_ExplainerDisabled(t *testing.T) {
	e := &stubExplainer{}
	if cmd := testReview(e).Init(); cmd != nil {
		t.Error("disabled explainer should not be called")
	}
}

type emptySource struct{}

func (emptySource) Get(context.Context, string) (*analytics.TestAnalytics, error) { return nil, nil }
func (emptySource) Leaderboard(context.Context, string, int) ([]analytics.Attempt, error) {
	return nil, nil
}
func (emptySource) StudentAttempts(context.Context, string) ([]analytics.Attempt, error) {
	return nil, nil
}

func TestReviewScreen_OpensStandings(t *testing.T) {
	s := New(testReview(nil).snap, testReview(nil).outcome, nil, WithHistory(emptySource{}, "alice"))
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	if cmd == nil {
		t.Fatal("expected push command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	if _, ok := push.Screen.(*history.HistoryScreen); !ok {
		t.Errorf("got %T, want history screen", push.Screen)
	}

	s.outcome.Recorded = false
	if _, cmd := s.Update(tea.KeyPressMsg{Code: 'h', Text: "h"}); cmd != nil {
		t.Error("unrecorded attempts have no standings")
	}
}
