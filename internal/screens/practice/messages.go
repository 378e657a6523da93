package practice

import (
	"time"

	"github.com/abhisek/examprep/internal/exam"
)

// startedMsg is sent when the question set has been drawn.
type startedMsg struct {
	Attempt *exam.Attempt
	Err     error
}

// timerTickMsg is sent every second to drive the countdown.
type timerTickMsg time.Time

// submittedMsg is sent once the attempt has been scored.
type submittedMsg struct {
	Outcome exam.Outcome
	Err     error
}
