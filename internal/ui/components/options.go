package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/ui/theme"
)

// OptionLabels label multiple-choice options in order.
var OptionLabels = []string{"A", "B", "C", "D"}

// OptionPicker selects one option of a multiple-choice question. It only
// moves the cursor and reports picks; the session owns the saved answer.
type OptionPicker struct {
	Options []string
	Cursor  int

	// Chosen is the saved answer, highlighted with a marker.
	Chosen string
}

// NewOptionPicker returns a picker over options with the cursor on the
// saved answer, or on the first option.
func NewOptionPicker(options []string, chosen string) OptionPicker {
	p := OptionPicker{Options: options, Chosen: chosen}
	for i, o := range options {
		if o == chosen {
			p.Cursor = i
		}
	}
	return p
}

// PickedMsg is emitted when an option is picked.
type PickedMsg struct {
	Value string
}

// Update moves the cursor with the arrows and picks with Enter, a digit
// or an option letter.
func (p OptionPicker) Update(msg tea.Msg) (OptionPicker, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(p.Options) == 0 {
		return p, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if p.Cursor > 0 {
			p.Cursor--
		}
		return p, nil
	case "down", "j":
		if p.Cursor < len(p.Options)-1 {
			p.Cursor++
		}
		return p, nil
	case "enter":
		return p.pick(p.Cursor)
	}

	if i, ok := optionIndex(key); ok && i < len(p.Options) {
		return p.pick(i)
	}
	return p, nil
}

func (p OptionPicker) pick(i int) (OptionPicker, tea.Cmd) {
	p.Cursor = i
	v := p.Options[i]
	return p, func() tea.Msg { return PickedMsg{Value: v} }
}

// optionIndex maps "1".."4" and "a".."d" to an option index.
func optionIndex(key string) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	switch {
	case c >= '1' && c <= '9':
		return int(c - '1'), true
	case c >= 'a' && c <= 'd':
		return int(c - 'a'), true
	case c >= 'A' && c <= 'D':
		return int(c - 'A'), true
	}
	return 0, false
}

// View renders the options with the cursor and saved-answer markers.
func (p OptionPicker) View() string {
	var b strings.Builder
	for i, opt := range p.Options {
		cursor := "  "
		if i == p.Cursor {
			cursor = "▸ "
		}
		mark := "○"
		if opt == p.Chosen {
			mark = "●"
		}
		line := fmt.Sprintf("%s%s %s)  %s", cursor, mark, label(i), opt)

		style := theme.Unselected
		switch {
		case i == p.Cursor:
			style = theme.Selected
		case opt == p.Chosen:
			style = lipgloss.NewStyle().Foreground(theme.Secondary)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMarkedOptions shows options after submission: the correct option
// in green and a wrong pick in red.
func RenderMarkedOptions(options []string, given, correct string) string {
	var b strings.Builder
	for i, opt := range options {
		line := fmt.Sprintf("  %s)  %s", label(i), opt)
		switch {
		case opt == correct:
			b.WriteString(theme.Correct.Render(line + "  ✓"))
		case opt == given:
			b.WriteString(theme.Incorrect.Render(line + "  ✗"))
		default:
			b.WriteString(theme.Skipped.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func label(i int) string {
	if i < len(OptionLabels) {
		return OptionLabels[i]
	}
	return fmt.Sprint(i + 1)
}
