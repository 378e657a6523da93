package practice

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/question"
	sess "github.com/abhisek/examprep/internal/session"
	"github.com/abhisek/examprep/internal/ui/components"
	"github.com/abhisek/examprep/internal/ui/layout"
	"github.com/abhisek/examprep/internal/ui/theme"
)

const (
	paletteWidth = 32
	lowTime      = time.Minute
)

func renderTimer(d time.Duration) string {
	style := theme.TimerNormal
	if d <= lowTime {
		style = theme.TimerLow
	}
	return style.Render("⏱ " + sess.FormatRemaining(d))
}

// renderQuestionView renders the current question with the palette to
// its right, or below it on narrow terminals.
func (s *PracticeScreen) renderQuestionView(width, height int) string {
	snap := s.attempt.Session.Snapshot()
	q, entry, ok := snap.Current()
	if !ok {
		return renderError(width, "Could not load any questions for this selection.")
	}

	compact := layout.IsCompactWidth(width)
	qWidth := width - paletteWidth - 2
	if compact {
		qWidth = width
	}

	var b strings.Builder

	info := fmt.Sprintf("  Question %d of %d", snap.Cursor+1, len(snap.Questions))
	if name := topicName(q); name != "" {
		info += "  ·  " + name
	}
	if q.Difficulty != "" {
		info += "  ·  " + q.Difficulty
	}
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(info))
	if entry.Status.Marked() {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Review).Render("  ⚑ marked"))
	}
	b.WriteString("\n")
	b.WriteString("  " + layout.Rule(qWidth, 80))
	b.WriteString("\n\n")

	for _, w := range s.warningLines() {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render("  ! " + w))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().
		Width(max(qWidth-4, 10)).
		PaddingLeft(2).
		Foreground(theme.Text).
		Bold(true).
		Render(q.Text))
	b.WriteString("\n")
	for _, img := range q.Images {
		b.WriteString(theme.Hint.Render("  [image] " + img))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if s.numeric {
		b.WriteString("  " + s.input.View())
		b.WriteString("\n")
		if entry.Value != "" {
			b.WriteString(theme.Hint.Render("  Saved: " + entry.Value))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(indent(s.picker.View(), "  "))
	}

	if s.notice != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render("  " + s.notice))
		b.WriteString("\n")
	}

	main := b.String()
	side := s.renderPalette(paletteWidth)
	if compact {
		return main + "\n" + side
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(qWidth).Render(main),
		"  ",
		side,
	)
}

func (s *PracticeScreen) renderPalette(width int) string {
	snap := s.attempt.Session.Snapshot()
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Bold(true).Render("Questions"))
	b.WriteString("\n")
	b.WriteString(components.Palette(snap.Entries, snap.Cursor, components.PaletteColumns(width)))
	b.WriteString("\n")
	b.WriteString(components.Legend(snap.Summary))
	return b.String()
}

// warningLines lists criteria issues and topics that failed to load.
func (s *PracticeScreen) warningLines() []string {
	lines := append([]string(nil), s.warnings...)
	if r := s.attempt.Report; r.Degraded() {
		lines = append(lines, "Some topics could not be loaded: "+strings.Join(r.Failed, ", "))
	}
	return lines
}

func topicName(q question.Question) string {
	switch {
	case q.SubjectName != "" && q.TopicName != "":
		return q.SubjectName + " / " + q.TopicName
	case q.TopicName != "":
		return q.TopicName
	}
	return q.TopicID
}

func (s *PracticeScreen) renderSubmitConfirm(width int) string {
	snap := s.attempt.Session.Snapshot()
	sum := snap.Summary
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Text).Bold(true), width, "Submit your answers?"))
	b.WriteString("\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width,
		fmt.Sprintf("Attempted %d of %d  ·  %d marked for review  ·  %s left",
			sum.Attempted(), len(snap.Questions), sum.MarkedForReview+sum.AnsweredAndMarkedForReview,
			sess.FormatRemaining(s.attempt.Countdown.Remaining()))))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Accent), width, "[Y] Submit    [N] Keep going"))
	return b.String()
}

func renderQuitConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Text).Bold(true), width, "Quit without submitting?"))
	b.WriteString("\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width,
		"This attempt will not be scored or recorded."))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Accent), width, "[Y] Quit    [N] Keep going"))
	return b.String()
}

func renderLoading(width int) string {
	return layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width, "\n\n\n  Drawing your questions...")
}

func renderSubmitting(width int) string {
	return layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width, "\n\n\n  Scoring your answers...")
}

func renderError(width int, errMsg string) string {
	return layout.Centered(lipgloss.NewStyle().Foreground(theme.Error), width,
		fmt.Sprintf("\n\n\n  %s\n\n  Press any key to exit.", errMsg))
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
