package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/question"
)

// NumberInput wraps bubbles/textinput for numerical answers. Keys that
// cannot appear in a number are dropped.
type NumberInput struct {
	Model textinput.Model
}

// NewNumberInput returns a focused input holding value.
func NewNumberInput(value string, limit int) NumberInput {
	ti := textinput.New()
	ti.Placeholder = "Type a number"
	if limit > 0 {
		ti.CharLimit = limit
	}
	ti.SetValue(value)
	ti.Focus()
	return NumberInput{Model: ti}
}

// Init returns the cursor blink command.
func (t NumberInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update forwards msg to the text input.
func (t NumberInput) Update(msg tea.Msg) (NumberInput, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		if key := kmsg.String(); len(key) == 1 && !numberRune(key[0]) {
			return t, nil
		}
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

func numberRune(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' || c == 'E' || c == '+'
}

// View renders the input.
func (t NumberInput) View() string {
	return t.Model.View()
}

// Value returns the raw text.
func (t NumberInput) Value() string {
	return t.Model.Value()
}

// Valid reports whether the text parses as a finite number.
func (t NumberInput) Valid() bool {
	_, ok := question.ParseNumber(t.Model.Value())
	return ok
}
