// Package review shows a scored attempt: the score, each question against
// its correct answer, and explanations for the wrong ones.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/router"
	"github.com/abhisek/examprep/internal/scoring"
	"github.com/abhisek/examprep/internal/screen"
	"github.com/abhisek/examprep/internal/screens/history"
	sess "github.com/abhisek/examprep/internal/session"
	"github.com/abhisek/examprep/internal/ui/components"
	"github.com/abhisek/examprep/internal/ui/layout"
	"github.com/abhisek/examprep/internal/ui/theme"
)

const (
	explainTimeout = 2 * time.Minute
	listRows       = 8
)

// Explainer generates explanations for wrong answers.
type Explainer interface {
	Enabled() bool
	ForAnswers(ctx context.Context, qs []question.Question, answers map[string]string) ([]explain.Explanation, error)
}

type explainedMsg struct {
	Explanations []explain.Explanation
	Err          error
}

// ReviewScreen implements screen.Screen for a submitted attempt.
type ReviewScreen struct {
	snap      sess.Snapshot
	outcome   exam.Outcome
	explainer Explainer

	history   history.Source
	studentID string

	byID   map[string]question.Question
	cursor int

	explaining   bool
	explanations map[string]explain.Explanation
	explainErr   string
}

var _ screen.Screen = (*ReviewScreen)(nil)
var _ screen.KeyHintProvider = (*ReviewScreen)(nil)

// Option configures a ReviewScreen.
type Option func(*ReviewScreen)

// WithHistory lets the student open the standings of the test.
func WithHistory(src history.Source, studentID string) Option {
	return func(s *ReviewScreen) {
		s.history = src
		s.studentID = studentID
	}
}

// New returns a review of snap scored as outcome. explainer may be nil.
func New(snap sess.Snapshot, outcome exam.Outcome, explainer Explainer, opts ...Option) *ReviewScreen {
	byID := make(map[string]question.Question, len(snap.Questions))
	for _, q := range snap.Questions {
		byID[q.ID] = q
	}
	s := &ReviewScreen{snap: snap, outcome: outcome, explainer: explainer, byID: byID}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *ReviewScreen) Init() tea.Cmd {
	if s.explainer == nil || !s.explainer.Enabled() || s.outcome.Result.Incorrect == 0 {
		return nil
	}
	s.explaining = true
	e, qs, answers := s.explainer, s.snap.Questions, answerMap(s.outcome.Result)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), explainTimeout)
		defer cancel()
		exps, err := e.ForAnswers(ctx, qs, answers)
		return explainedMsg{Explanations: exps, Err: err}
	}
}

func answerMap(r scoring.Result) map[string]string {
	m := make(map[string]string, len(r.Questions))
	for _, qr := range r.Questions {
		m[qr.QuestionID] = qr.Answer
	}
	return m
}

func (s *ReviewScreen) Title() string {
	return "Review"
}

func (s *ReviewScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "↑↓", Description: "Question"}}
	if s.history != nil && s.outcome.Recorded {
		hints = append(hints, layout.KeyHint{Key: "h", Description: "Standings"})
	}
	return append(hints, layout.KeyHint{Key: "q", Description: "Quit"})
}

func (s *ReviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case explainedMsg:
		s.explaining = false
		if msg.Err != nil {
			s.explainErr = msg.Err.Error()
			return s, nil
		}
		s.explanations = make(map[string]explain.Explanation, len(msg.Explanations))
		for _, e := range msg.Explanations {
			s.explanations[e.QuestionID] = e
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.outcome.Result.Questions)-1 {
				s.cursor++
			}
		case "h":
			if s.history != nil && s.outcome.Recorded {
				next := history.New(s.history, s.outcome.TestID, s.studentID)
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			}
		case "q", "esc", "enter":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *ReviewScreen) View(width, height int) string {
	r := s.outcome.Result
	var b strings.Builder

	heading := "Submitted"
	if s.outcome.Trigger == exam.TriggerTimer {
		heading = "Time's up! Your answers were submitted."
	}
	b.WriteString(layout.Centered(theme.Title, width, heading))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Text).Bold(true), width,
		fmt.Sprintf("Score %s / %s", question.FormatNumber(r.Score), question.FormatNumber(r.MaxScore))))
	b.WriteString("\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width,
		fmt.Sprintf("Time taken %.1f min", s.outcome.TimeTakenMinutes)))
	b.WriteString("\n\n")

	bar := components.OutcomeBar{Correct: r.Correct, Incorrect: r.Incorrect, Unattempted: r.Unattempted, Width: min(width-8, 60)}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n")

	if !s.outcome.Recorded {
		note := "Your score could not be added to the test statistics."
		if s.outcome.AggregateQueued {
			note += " It will be retried."
		}
		b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Accent), width, note))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, layout.Rule(width, 70)))
	b.WriteString("\n")
	b.WriteString(s.renderList())
	b.WriteString("\n")
	b.WriteString(s.renderDetail(width))
	return b.String()
}

func outcomeMark(o scoring.Outcome) string {
	switch o {
	case scoring.Correct:
		return theme.Correct.Render("✓")
	case scoring.Incorrect:
		return theme.Incorrect.Render("✗")
	}
	return theme.Skipped.Render("–")
}

// renderList shows a window of question rows around the cursor.
func (s *ReviewScreen) renderList() string {
	qs := s.outcome.Result.Questions
	start := max(0, min(s.cursor-listRows/2, len(qs)-listRows))
	end := min(len(qs), start+listRows)

	var b strings.Builder
	for i := start; i < end; i++ {
		qr := qs[i]
		text := s.byID[qr.QuestionID].Text
		if len([]rune(text)) > 50 {
			text = string([]rune(text)[:49]) + "…"
		}
		line := fmt.Sprintf("Q%-3d %-52s %+g", i+1, text, qr.Marks)
		style := theme.Unselected
		prefix := "   "
		if i == s.cursor {
			style = theme.Selected
			prefix = " ▸ "
		}
		b.WriteString(prefix + outcomeMark(qr.Outcome) + " " + style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *ReviewScreen) renderDetail(width int) string {
	qs := s.outcome.Result.Questions
	if s.cursor >= len(qs) {
		return ""
	}
	qr := qs[s.cursor]
	q := s.byID[qr.QuestionID]

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Width(max(width-4, 10)).PaddingLeft(2).Bold(true).Render(q.Text))
	b.WriteString("\n\n")

	if mc, ok := q.Body.(question.MultipleChoice); ok {
		b.WriteString(components.RenderMarkedOptions(mc.Options, qr.Answer, qr.Expected))
	} else {
		given := qr.Answer
		if given == "" {
			given = "not answered"
		}
		b.WriteString(fmt.Sprintf("  Your answer: %s\n", given))
		b.WriteString(theme.Correct.Render("  Correct answer: " + qr.Expected))
		b.WriteString("\n")
	}

	if q.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  Explanation"))
		b.WriteString("\n")
		b.WriteString(theme.Body.Width(max(width-4, 10)).PaddingLeft(2).Render(q.Explanation))
		b.WriteString("\n")
	}

	if qr.Outcome == scoring.Incorrect {
		b.WriteString(s.renderAIExplanation(qr.QuestionID, width))
	}
	return b.String()
}

func (s *ReviewScreen) renderAIExplanation(questionID string, width int) string {
	var b strings.Builder
	b.WriteString("\n")
	switch {
	case s.explaining:
		b.WriteString(theme.Hint.Render("  Generating an explanation..."))
	case s.explainErr != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("  Explanations unavailable: " + s.explainErr))
	default:
		e, ok := s.explanations[questionID]
		if !ok {
			return ""
		}
		if e.Error != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("  Explanation unavailable: " + e.Error))
			break
		}
		body := theme.Body.Width(max(width-6, 10)).PaddingLeft(4)
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("  Why"))
		b.WriteString("\n")
		b.WriteString(body.Render(e.Text))
		for i, step := range e.Steps {
			b.WriteString("\n")
			b.WriteString(body.Render(fmt.Sprintf("%d. %s", i+1, step)))
		}
		if e.Misconception != "" {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).PaddingLeft(4).Render("Watch out: " + e.Misconception))
		}
	}
	b.WriteString("\n")
	return b.String()
}
