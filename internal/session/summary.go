package session

import "github.com/abhisek/examprep/internal/question"

// Summary counts questions per status for the palette legend.
type Summary struct {
	NotVisited                 int `json:"notVisited"`
	NotAnswered                int `json:"notAnswered"`
	Answered                   int `json:"answered"`
	MarkedForReview            int `json:"markedForReview"`
	AnsweredAndMarkedForReview int `json:"answeredAndMarkedForReview"`
}

// Count returns the number of questions in st.
func (s Summary) Count(st Status) int {
	switch st {
	case NotVisited:
		return s.NotVisited
	case NotAnswered:
		return s.NotAnswered
	case Answered:
		return s.Answered
	case MarkedForReview:
		return s.MarkedForReview
	case AnsweredAndMarkedForReview:
		return s.AnsweredAndMarkedForReview
	}
	return 0
}

// Attempted counts questions that carry an answer.
func (s Summary) Attempted() int {
	return s.Answered + s.AnsweredAndMarkedForReview
}

func (s *Summary) add(st Status) {
	switch st {
	case NotVisited:
		s.NotVisited++
	case NotAnswered:
		s.NotAnswered++
	case Answered:
		s.Answered++
	case MarkedForReview:
		s.MarkedForReview++
	case AnsweredAndMarkedForReview:
		s.AnsweredAndMarkedForReview++
	}
}

// Snapshot is a read-only copy of a session for renderers.
type Snapshot struct {
	ID        string
	Questions []question.Question
	Entries   []Entry
	Cursor    int
	Finished  bool
	Summary   Summary
}

// Current returns the question under the cursor.
func (s Snapshot) Current() (question.Question, Entry, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return question.Question{}, Entry{}, false
	}
	return s.Questions[s.Cursor], s.Entries[s.Cursor], true
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		Questions: make([]question.Question, len(s.questions)),
		Entries:   make([]Entry, len(s.entries)),
		Cursor:    s.cursor,
		Finished:  s.finished,
	}
	for i, q := range s.questions {
		snap.Questions[i] = q.Clone()
	}
	copy(snap.Entries, s.entries)
	for _, e := range s.entries {
		snap.Summary.add(e.Status)
	}
	return snap
}
