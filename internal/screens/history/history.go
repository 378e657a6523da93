// Package history shows how a test has gone so far: its aggregate, the
// leaderboard and the student's own past attempts.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/router"
	"github.com/abhisek/examprep/internal/screen"
	"github.com/abhisek/examprep/internal/ui/layout"
	"github.com/abhisek/examprep/internal/ui/theme"
)

const leaderboardSize = 5

// Source reads recorded attempts and aggregates.
type Source interface {
	Get(ctx context.Context, testID string) (*analytics.TestAnalytics, error)
	Leaderboard(ctx context.Context, testID string, limit int) ([]analytics.Attempt, error)
	StudentAttempts(ctx context.Context, studentID string) ([]analytics.Attempt, error)
}

type historyLoadedMsg struct {
	Analytics   *analytics.TestAnalytics
	Leaderboard []analytics.Attempt
	Mine        []analytics.Attempt
	Err         error
}

// HistoryScreen displays the standings of one test.
type HistoryScreen struct {
	source    Source
	testID    string
	studentID string

	analytics   *analytics.TestAnalytics
	leaderboard []analytics.Attempt
	mine        []analytics.Attempt
	selected    int
	loaded      bool
	errMsg      string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New returns a screen for testID as seen by studentID.
func New(source Source, testID, studentID string) *HistoryScreen {
	return &HistoryScreen{source: source, testID: testID, studentID: studentID}
}

func (s *HistoryScreen) Init() tea.Cmd {
	src, testID, studentID := s.source, s.testID, s.studentID
	return func() tea.Msg {
		ctx := context.Background()

		ta, err := src.Get(ctx, testID)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		board, err := src.Leaderboard(ctx, testID, leaderboardSize)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		all, err := src.StudentAttempts(ctx, studentID)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}

		var mine []analytics.Attempt
		for _, a := range all {
			if a.TestID == testID {
				mine = append(mine, a)
			}
		}
		return historyLoadedMsg{Analytics: ta, Leaderboard: board, Mine: mine}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.analytics = msg.Analytics
			s.leaderboard = msg.Leaderboard
			s.mine = msg.Mine
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.mine)-1 {
				s.selected++
			}
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.Error), width,
			fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width, "\n\n  Loading history...")
	}
	if s.analytics == nil {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true), width,
			"\n\n  No attempts recorded for this test yet.")
	}

	ta := s.analytics
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered(theme.Title, width, s.testID))
	b.WriteString("\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width,
		fmt.Sprintf("%d attempts  ·  average %s  ·  %.1f min average",
			ta.NumberOfAttempts, question.FormatNumber(round(ta.AverageScore)), ta.AverageTimeTaken)))
	b.WriteString("\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Accent), width,
		fmt.Sprintf("Top score %s by %s", question.FormatNumber(ta.TopperScore), ta.TopperStudentName)))
	b.WriteString("\n\n")

	b.WriteString(s.section(width, "Leaderboard"))
	for i, a := range s.leaderboard {
		line := fmt.Sprintf("%2d. %-20s %6s  %5.1f min", i+1, a.StudentName, question.FormatNumber(a.Score), a.TimeTakenMinutes)
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if a.StudentID == s.studentID {
			style = style.Foreground(theme.Secondary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(s.section(width, "Your attempts"))
	if len(s.mine) == 0 {
		b.WriteString(layout.Centered(theme.Hint, width, "None recorded"))
		b.WriteString("\n")
	}
	for i, a := range s.mine {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		line := fmt.Sprintf("%s%s  score %s  %.1f min", prefix,
			a.SubmittedAt.Format("Jan 02, 2006 15:04"), question.FormatNumber(a.Score), a.TimeTakenMinutes)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *HistoryScreen) section(width int, name string) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(name)) + "\n" +
		lipgloss.PlaceHorizontal(width, lipgloss.Center, layout.Rule(width, 50)) + "\n"
}

func round(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
