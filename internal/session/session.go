// Package session holds the in-memory answer state of one practice
// session and the events that move each question through its statuses.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/abhisek/examprep/internal/question"
)

var (
	// ErrFinished is returned by events sent after Finish.
	ErrFinished = errors.New("session already submitted")

	// ErrLastQuestion is returned by SaveAndNext on the last question.
	ErrLastQuestion = errors.New("already at the last question")

	// ErrOutOfRange is returned for a question index outside the set.
	ErrOutOfRange = errors.New("question index out of range")
)

// Session is one practice attempt over a fixed question set. The UI and
// the countdown goroutine share it, so every method locks.
type Session struct {
	mu        sync.Mutex
	id        string
	questions []question.Question
	entries   []Entry
	cursor    int
	finished  bool
}

// New starts a session on qs with the cursor on the first question. The
// session keeps its own copies of the questions.
func New(id string, qs []question.Question) *Session {
	own := make([]question.Question, len(qs))
	for i, q := range qs {
		own[i] = q.Clone()
	}
	return &Session{
		id:        id,
		questions: own,
		entries:   make([]Entry, len(qs)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Cursor returns the index of the question on screen.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Finished reports whether Finish has run.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// SelectQuestion moves the cursor to i. The question being left becomes
// NotAnswered if it was still NotVisited.
func (s *Session) SelectQuestion(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	return s.selectLocked(i)
}

func (s *Session) selectLocked(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(s.entries))
	}
	if i == s.cursor {
		return nil
	}
	if cur := &s.entries[s.cursor]; cur.Status == NotVisited {
		cur.Status = NotAnswered
	}
	s.cursor = i
	return nil
}

// AnswerChange stores v as the answer to the current question. A marked
// question stays marked. An empty v clears the response.
func (s *Session) AnswerChange(v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	s.answerLocked(v)
	return nil
}

// AnswerChangeChecked is AnswerChange with check run against the current
// question under the same lock. A check error leaves the entry untouched.
func (s *Session) AnswerChangeChecked(v string, check func(q question.Question, v string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	if err := check(s.questions[s.cursor], v); err != nil {
		return err
	}
	s.answerLocked(v)
	return nil
}

func (s *Session) answerLocked(v string) {
	if v == "" {
		s.clearLocked()
		return
	}

	cur := &s.entries[s.cursor]
	cur.Value = v
	if cur.Status.Marked() {
		cur.Status = AnsweredAndMarkedForReview
	} else {
		cur.Status = Answered
	}
}

// MarkForReview flags the current question and advances. On the last
// question the cursor stays put.
func (s *Session) MarkForReview() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}

	cur := &s.entries[s.cursor]
	if cur.Value != "" {
		cur.Status = AnsweredAndMarkedForReview
	} else {
		cur.Status = MarkedForReview
	}
	if s.cursor == len(s.entries)-1 {
		return nil
	}
	return s.selectLocked(s.cursor + 1)
}

// ClearResponse drops the current answer and any review flag.
func (s *Session) ClearResponse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	s.clearLocked()
	return nil
}

func (s *Session) clearLocked() {
	s.entries[s.cursor] = Entry{Status: NotAnswered}
}

// SaveAndNext moves to the next question.
func (s *Session) SaveAndNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	if s.cursor == len(s.entries)-1 {
		return ErrLastQuestion
	}
	return s.selectLocked(s.cursor + 1)
}

func (s *Session) checkLocked() error {
	if s.finished {
		return ErrFinished
	}
	if len(s.entries) == 0 {
		return fmt.Errorf("%w: empty session", ErrOutOfRange)
	}
	return nil
}

// Finish closes the session to further events. Only the first call
// returns true; the caller that gets true owns submission. The question
// on screen is finalised as if the student had navigated away from it.
func (s *Session) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	s.finished = true
	if len(s.entries) > 0 && s.entries[s.cursor].Status == NotVisited {
		s.entries[s.cursor].Status = NotAnswered
	}
	return true
}

// Answers returns the non-empty answers keyed by question ID.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for i, e := range s.entries {
		if e.Value != "" {
			out[s.questions[i].ID] = e.Value
		}
	}
	return out
}

// Statuses returns every question's status name keyed by question ID.
func (s *Session) Statuses() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for i, e := range s.entries {
		out[s.questions[i].ID] = e.Status.String()
	}
	return out
}

// Questions returns copies of the session's questions.
func (s *Session) Questions() []question.Question {
	out := make([]question.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}
