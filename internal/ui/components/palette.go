package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/session"
	"github.com/abhisek/examprep/internal/ui/theme"
)

// statusLabels are the legend captions, in session.AllStatuses order.
var statusLabels = map[session.Status]string{
	session.NotVisited:                 "Not visited",
	session.NotAnswered:                "Not answered",
	session.Answered:                   "Answered",
	session.MarkedForReview:            "Marked for review",
	session.AnsweredAndMarkedForReview: "Answered & marked",
}

// CellStyle returns the palette style for st.
func CellStyle(st session.Status) lipgloss.Style {
	switch st {
	case session.NotAnswered:
		return theme.CellNotAnswered
	case session.Answered:
		return theme.CellAnswered
	case session.MarkedForReview:
		return theme.CellMarked
	case session.AnsweredAndMarkedForReview:
		return theme.CellAnsweredMarked
	}
	return theme.CellNotVisited
}

// Palette renders the question grid: one numbered cell per question,
// coloured by status, with the current question underlined.
func Palette(entries []session.Entry, cursor, columns int) string {
	if columns < 1 {
		columns = 1
	}
	var b strings.Builder
	for i, e := range entries {
		style := CellStyle(e.Status)
		if i == cursor {
			style = style.Inherit(theme.CellCursor).Underline(true)
		}
		b.WriteString(style.Render(fmt.Sprintf(" %2d ", i+1)))
		if (i+1)%columns == 0 || i == len(entries)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// PaletteColumns returns how many cells fit in width.
func PaletteColumns(width int) int {
	const cell = 5
	n := width / cell
	if n < 1 {
		return 1
	}
	return n
}

// Legend renders one line per status with its count.
func Legend(sum session.Summary) string {
	var b strings.Builder
	for _, st := range session.AllStatuses {
		b.WriteString(CellStyle(st).Render(fmt.Sprintf(" %2d ", sum.Count(st))))
		b.WriteString(" ")
		b.WriteString(theme.Hint.Render(statusLabels[st]))
		b.WriteString("\n")
	}
	return b.String()
}
