// Package analytics records submitted attempts and folds them into the
// per-test aggregate shown on leaderboards.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/identity"
)

// Collections.
const (
	AnalyticsCollection = "testAnalytics"
	AttemptCollection   = "testAttempts"
)

// Submission is one finished attempt as handed over by the exam flow.
// AttemptID is generated before submission so a replay writes the same
// attempt document.
type Submission struct {
	AttemptID        string
	TestID           string
	Student          identity.Identity
	Score            float64
	TimeTakenMinutes float64
	Answers          map[string]string
	Statuses         map[string]string

	// Key holds the correct answer of every question as it stood when the
	// attempt was scored.
	Key         map[string]string
	SubmittedAt time.Time
}

// Validate checks the fields the fold depends on.
func (s Submission) Validate() error {
	switch {
	case s.AttemptID == "":
		return fmt.Errorf("%w: missing attempt id", ErrInvalidSubmission)
	case s.TestID == "":
		return fmt.Errorf("%w: missing test id", ErrInvalidSubmission)
	case s.Student.StudentID == "":
		return fmt.Errorf("%w: missing student id", ErrInvalidSubmission)
	case s.TimeTakenMinutes < 0:
		return fmt.Errorf("%w: negative time taken", ErrInvalidSubmission)
	}
	return nil
}

// Attempt is the stored, write-once record of a submission.
type Attempt struct {
	ID               string            `json:"-"`
	TestID           string            `json:"testId"`
	StudentID        string            `json:"studentId"`
	StudentName      string            `json:"studentName"`
	Score            float64           `json:"score"`
	TimeTakenMinutes float64           `json:"timeTakenMinutes"`
	Answers          map[string]string `json:"answers"`
	Statuses         map[string]string `json:"statuses"`
	Key              map[string]string `json:"answerKey,omitempty"`
	SubmittedAt      time.Time         `json:"submittedAt"`
}

// TestAnalytics is the running aggregate of all attempts at one test.
// It is only ever produced by Fold.
type TestAnalytics struct {
	TestID            string    `json:"-"`
	NumberOfAttempts  int       `json:"numberOfAttempts"`
	TotalScore        float64   `json:"totalScore"`
	TotalTimeTaken    float64   `json:"totalTimeTaken"`
	AverageScore      float64   `json:"averageScore"`
	AverageTimeTaken  float64   `json:"averageTimeTaken"`
	TopperScore       float64   `json:"topperScore"`
	TopperStudentID   string    `json:"topperStudentId"`
	TopperStudentName string    `json:"topperStudentName"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Fold merges s into prev. A nil prev starts a new aggregate. The topper
// only changes on a strictly higher score, so the first student to reach
// the top score keeps it.
func Fold(prev *TestAnalytics, s Submission, now time.Time) TestAnalytics {
	if prev == nil {
		return TestAnalytics{
			TestID:            s.TestID,
			NumberOfAttempts:  1,
			TotalScore:        s.Score,
			TotalTimeTaken:    s.TimeTakenMinutes,
			AverageScore:      s.Score,
			AverageTimeTaken:  s.TimeTakenMinutes,
			TopperScore:       s.Score,
			TopperStudentID:   s.Student.StudentID,
			TopperStudentName: s.Student.Name(),
			UpdatedAt:         now,
		}
	}

	next := *prev
	next.TestID = s.TestID
	next.NumberOfAttempts++
	next.TotalScore += s.Score
	next.TotalTimeTaken += s.TimeTakenMinutes
	next.AverageScore = next.TotalScore / float64(next.NumberOfAttempts)
	next.AverageTimeTaken = next.TotalTimeTaken / float64(next.NumberOfAttempts)
	if s.Score > next.TopperScore {
		next.TopperScore = s.Score
		next.TopperStudentID = s.Student.StudentID
		next.TopperStudentName = s.Student.Name()
	}
	next.UpdatedAt = now
	return next
}

func attemptFromSubmission(s Submission, now time.Time) Attempt {
	at := s.SubmittedAt
	if at.IsZero() {
		at = now
	}
	return Attempt{
		ID:               s.AttemptID,
		TestID:           s.TestID,
		StudentID:        s.Student.StudentID,
		StudentName:      s.Student.Name(),
		Score:            s.Score,
		TimeTakenMinutes: s.TimeTakenMinutes,
		Answers:          s.Answers,
		Statuses:         s.Statuses,
		Key:              s.Key,
		SubmittedAt:      at.UTC(),
	}
}

// toDocument and fromDocument map the JSON-tagged structs onto stored
// documents.
func toDocument(id string, v any) (docstore.Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode %s: %w", id, err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return docstore.Document{}, fmt.Errorf("encode %s: %w", id, err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func fromDocument(doc docstore.Document, v any) error {
	b, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return nil
}

func decodeAnalytics(doc docstore.Document) (*TestAnalytics, error) {
	var ta TestAnalytics
	if err := fromDocument(doc, &ta); err != nil {
		return nil, err
	}
	ta.TestID = doc.ID
	return &ta, nil
}

func decodeAttempt(doc docstore.Document) (Attempt, error) {
	var a Attempt
	if err := fromDocument(doc, &a); err != nil {
		return Attempt{}, err
	}
	a.ID = doc.ID
	return a, nil
}
