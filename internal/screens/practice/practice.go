// Package practice is the timed exam screen: one question at a time with
// the question palette beside it.
package practice

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/router"
	"github.com/abhisek/examprep/internal/screen"
	"github.com/abhisek/examprep/internal/screens/history"
	"github.com/abhisek/examprep/internal/screens/review"
	sess "github.com/abhisek/examprep/internal/session"
	"github.com/abhisek/examprep/internal/ui/components"
	"github.com/abhisek/examprep/internal/ui/layout"
)

const numberLimit = 24

// Starter opens attempts.
type Starter interface {
	Start(ctx context.Context, student identity.Identity, cfg exam.Config) (*exam.Attempt, error)
}

// PracticeScreen implements screen.Screen for a running attempt.
type PracticeScreen struct {
	starter   Starter
	student   identity.Identity
	cfg       exam.Config
	explainer review.Explainer
	history   history.Source
	warnings  []string

	attempt *exam.Attempt
	picker  components.OptionPicker
	input   components.NumberInput
	numeric bool

	showingQuitConfirm   bool
	showingSubmitConfirm bool
	submitting           bool

	notice string
	errMsg string
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)
var _ screen.StatusProvider = (*PracticeScreen)(nil)
var _ screen.Guard = (*PracticeScreen)(nil)

// Option configures a PracticeScreen.
type Option func(*PracticeScreen)

// WithExplainer enables AI explanations on the review screen.
func WithExplainer(e review.Explainer) Option {
	return func(s *PracticeScreen) { s.explainer = e }
}

// WithHistory lets the review screen open the test standings.
func WithHistory(src history.Source) Option {
	return func(s *PracticeScreen) { s.history = src }
}

// WithWarnings shows notes about the selection, such as skipped criteria
// entries, above the first question.
func WithWarnings(w []string) Option {
	return func(s *PracticeScreen) { s.warnings = w }
}

// New returns a screen that starts an attempt for student on Init.
func New(starter Starter, student identity.Identity, cfg exam.Config, opts ...Option) *PracticeScreen {
	s := &PracticeScreen{starter: starter, student: student, cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Attempt returns the running attempt, or nil before it has started.
func (s *PracticeScreen) Attempt() *exam.Attempt { return s.attempt }

func (s *PracticeScreen) Init() tea.Cmd {
	return s.start()
}

func (s *PracticeScreen) Title() string {
	return "Practice"
}

// Status shows the countdown in the header.
func (s *PracticeScreen) Status() string {
	if s.attempt == nil {
		return ""
	}
	return renderTimer(s.attempt.Countdown.Remaining())
}

// Guarded keeps Esc on this screen while the attempt is open.
func (s *PracticeScreen) Guarded() bool {
	return s.attempt != nil && !s.attempt.Session.Finished()
}

func (s *PracticeScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Quit"}}
	case s.attempt == nil || s.submitting:
		return nil
	case s.showingQuitConfirm || s.showingSubmitConfirm:
		return []layout.KeyHint{
			{Key: "Y", Description: "Confirm"},
			{Key: "N", Description: "Keep going"},
		}
	}
	hints := []layout.KeyHint{}
	if s.numeric {
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Save"})
	} else {
		hints = append(hints, layout.KeyHint{Key: "A-D", Description: "Answer"})
	}
	return append(hints,
		layout.KeyHint{Key: "n", Description: "Next"},
		layout.KeyHint{Key: "[ ]", Description: "Prev/Next"},
		layout.KeyHint{Key: "m", Description: "Mark"},
		layout.KeyHint{Key: "x", Description: "Clear"},
		layout.KeyHint{Key: "s", Description: "Submit"},
		layout.KeyHint{Key: "Esc", Description: "Quit"},
	)
}

func (s *PracticeScreen) View(width, height int) string {
	switch {
	case s.errMsg != "":
		return renderError(width, s.errMsg)
	case s.attempt == nil:
		return renderLoading(width)
	case s.submitting:
		return renderSubmitting(width)
	case s.showingQuitConfirm:
		return renderQuitConfirm(width)
	case s.showingSubmitConfirm:
		return s.renderSubmitConfirm(width)
	}
	return s.renderQuestionView(width, height)
}

func (s *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		return s.handleStarted(msg)

	case timerTickMsg:
		return s.handleTimerTick()

	case submittedMsg:
		return s.handleSubmitted(msg)

	case components.PickedMsg:
		s.apply(s.attempt.Session.AnswerChange(msg.Value))
		return s, s.load()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.active() && s.numeric {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *PracticeScreen) start() tea.Cmd {
	starter, student, cfg := s.starter, s.student, s.cfg
	return func() tea.Msg {
		a, err := starter.Start(context.Background(), student, cfg)
		return startedMsg{Attempt: a, Err: err}
	}
}

func (s *PracticeScreen) handleStarted(msg startedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		if errors.Is(msg.Err, exam.ErrNoQuestions) {
			s.errMsg = "Could not load any questions for this selection."
		} else {
			s.errMsg = msg.Err.Error()
		}
		return s, nil
	}
	s.attempt = msg.Attempt
	return s, tea.Batch(s.load(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}

func (s *PracticeScreen) handleTimerTick() (screen.Screen, tea.Cmd) {
	if s.attempt == nil || s.attempt.Session.Finished() {
		return s, nil
	}
	if s.attempt.Countdown.Tick() {
		s.commitInput()
		s.showingQuitConfirm = false
		s.showingSubmitConfirm = false
		return s, s.submit(exam.TriggerTimer)
	}
	return s, tickCmd()
}

func (s *PracticeScreen) submit(trigger exam.Trigger) tea.Cmd {
	s.submitting = true
	a := s.attempt
	return func() tea.Msg {
		out, _, err := a.Submit(context.Background(), trigger)
		return submittedMsg{Outcome: out, Err: err}
	}
}

func (s *PracticeScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	s.submitting = false
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	var opts []review.Option
	if s.history != nil {
		opts = append(opts, review.WithHistory(s.history, s.student.StudentID))
	}
	next := review.New(s.attempt.Session.Snapshot(), msg.Outcome, s.explainer, opts...)
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

// active reports whether the question view is taking input.
func (s *PracticeScreen) active() bool {
	return s.errMsg == "" && s.attempt != nil && !s.submitting &&
		!s.showingQuitConfirm && !s.showingSubmitConfirm && !s.attempt.Session.Finished()
}

func (s *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, tea.Quit
	}
	if s.attempt == nil || s.submitting {
		return s, nil
	}

	if s.showingQuitConfirm {
		switch key {
		case "y", "Y":
			s.showingQuitConfirm = false
			s.attempt.Abandon()
			return s, tea.Quit
		case "n", "N", "esc":
			s.showingQuitConfirm = false
		}
		return s, nil
	}

	if s.showingSubmitConfirm {
		switch key {
		case "y", "Y", "enter":
			s.showingSubmitConfirm = false
			return s, s.submit(exam.TriggerManual)
		case "n", "N", "esc":
			s.showingSubmitConfirm = false
		}
		return s, nil
	}

	if s.attempt.Session.Finished() {
		return s, nil
	}

	sn := s.attempt.Session
	switch key {
	case "esc":
		s.showingQuitConfirm = true
		return s, nil
	case "s":
		s.commitInput()
		s.showingSubmitConfirm = true
		return s, nil
	case "n", "tab":
		s.commitInput()
		err := sn.SaveAndNext()
		if errors.Is(err, sess.ErrLastQuestion) {
			s.notice = "This is the last question. Press s to submit."
			return s, nil
		}
		s.apply(err)
		return s, s.load()
	case "]":
		s.commitInput()
		s.apply(sn.SelectQuestion(min(sn.Cursor()+1, sn.Len()-1)))
		return s, s.load()
	case "[":
		s.commitInput()
		s.apply(sn.SelectQuestion(max(sn.Cursor()-1, 0)))
		return s, s.load()
	case "m":
		s.commitInput()
		s.apply(sn.MarkForReview())
		return s, s.load()
	case "x":
		s.apply(sn.ClearResponse())
		return s, s.load()
	case "enter":
		if s.numeric {
			s.commitInput()
			return s, nil
		}
	}

	var cmd tea.Cmd
	if s.numeric {
		s.input, cmd = s.input.Update(msg)
	} else {
		s.picker, cmd = s.picker.Update(msg)
	}
	return s, cmd
}

// commitInput saves a typed numerical answer that differs from the saved
// one. Text that is not a number is left unsaved with a notice.
func (s *PracticeScreen) commitInput() {
	if !s.numeric || s.attempt == nil {
		return
	}
	_, entry, ok := s.attempt.Session.Snapshot().Current()
	if !ok {
		return
	}
	v := strings.TrimSpace(s.input.Value())
	if v == entry.Value {
		return
	}
	if v != "" && !s.input.Valid() {
		s.notice = "\"" + v + "\" is not a number; answer not saved."
		return
	}
	s.apply(s.attempt.Session.AnswerChange(v))
}

// apply records the result of a session event as the notice line.
func (s *PracticeScreen) apply(err error) {
	s.notice = ""
	if err != nil {
		s.notice = err.Error()
	}
}

// load points the answer widget at the current question.
func (s *PracticeScreen) load() tea.Cmd {
	q, entry, ok := s.attempt.Session.Snapshot().Current()
	if !ok {
		return nil
	}
	if mc, isMC := q.Body.(question.MultipleChoice); isMC {
		s.numeric = false
		s.picker = components.NewOptionPicker(mc.Options, entry.Value)
		return nil
	}
	s.numeric = true
	s.input = components.NewNumberInput(entry.Value, numberLimit)
	return s.input.Init()
}
