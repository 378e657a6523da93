package session

import (
	"fmt"
)

// Status is the palette state of one question.
type Status int

const (
	NotVisited                 Status = iota // Never left after being shown
	NotAnswered                              // Visited and left without an answer
	Answered                                 // Has a saved answer
	MarkedForReview                          // Flagged, no answer
	AnsweredAndMarkedForReview               // Flagged with an answer
)

var statusNames = [...]string{
	NotVisited:                 "notVisited",
	NotAnswered:                "notAnswered",
	Answered:                   "answered",
	MarkedForReview:            "markedForReview",
	AnsweredAndMarkedForReview: "answeredAndMarkedForReview",
}

// AllStatuses lists statuses in palette order.
var AllStatuses = []Status{NotVisited, NotAnswered, Answered, MarkedForReview, AnsweredAndMarkedForReview}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus is the inverse of String.
func ParseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), true
		}
	}
	return 0, false
}

// HasValue reports whether entries in this status carry a non-empty value.
func (s Status) HasValue() bool {
	return s == Answered || s == AnsweredAndMarkedForReview
}

// Marked reports whether the question is flagged for review.
func (s Status) Marked() bool {
	return s == MarkedForReview || s == AnsweredAndMarkedForReview
}

func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown status %q", b)
	}
	*s = v
	return nil
}

// Entry is the answer state of one question. Value is empty exactly when
// Status does not carry a value.
type Entry struct {
	Value  string `json:"value"`
	Status Status `json:"status"`
}
