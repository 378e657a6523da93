package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/ui/theme"
)

// OutcomeBar is a stacked bar of correct, incorrect and unattempted
// question counts.
type OutcomeBar struct {
	Correct     int
	Incorrect   int
	Unattempted int
	Width       int
}

// View renders the bar followed by the counts.
func (o OutcomeBar) View() string {
	total := o.Correct + o.Incorrect + o.Unattempted
	legend := fmt.Sprintf("  %s %d  %s %d  %s %d",
		theme.Correct.Render("✓"), o.Correct,
		theme.Incorrect.Render("✗"), o.Incorrect,
		theme.Skipped.Render("–"), o.Unattempted)

	barWidth := o.Width - lipgloss.Width(legend)
	if barWidth < 4 {
		barWidth = 4
	}
	if total == 0 {
		return theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth)) + legend
	}

	good := barWidth * o.Correct / total
	bad := barWidth * o.Incorrect / total
	rest := barWidth - good - bad

	return lipgloss.NewStyle().Background(theme.Success).Render(strings.Repeat(" ", good)) +
		lipgloss.NewStyle().Background(theme.Error).Render(strings.Repeat(" ", bad)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", rest)) +
		legend
}
