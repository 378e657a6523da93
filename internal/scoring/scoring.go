// Package scoring marks a submitted answer sheet under a positive and
// negative marking scheme.
package scoring

import (
	"fmt"

	"github.com/abhisek/examprep/internal/question"
)

// Scheme is a marking scheme. NegativeMarksPerIncorrect is a magnitude
// and is subtracted for each wrong answer.
type Scheme struct {
	MarksPerCorrect           float64 `json:"marksPerCorrect"`
	NegativeMarksPerIncorrect float64 `json:"negativeMarksPerIncorrect"`
}

// DefaultScheme awards +4 and deducts 1.
func DefaultScheme() Scheme {
	return Scheme{MarksPerCorrect: 4, NegativeMarksPerIncorrect: 1}
}

// Validate rejects negative marks.
func (s Scheme) Validate() error {
	if s.MarksPerCorrect < 0 {
		return fmt.Errorf("marks per correct answer must not be negative, got %v", s.MarksPerCorrect)
	}
	if s.NegativeMarksPerIncorrect < 0 {
		return fmt.Errorf("negative marks must be given as a magnitude, got %v", s.NegativeMarksPerIncorrect)
	}
	return nil
}

// Outcome is the result of one question.
type Outcome string

const (
	Correct     Outcome = "correct"
	Incorrect   Outcome = "incorrect"
	Unattempted Outcome = "unattempted"
)

// QuestionResult is the marked outcome of one question.
type QuestionResult struct {
	QuestionID string  `json:"questionId"`
	Answer     string  `json:"answer"`
	Expected   string  `json:"correctAnswer"`
	Outcome    Outcome `json:"outcome"`
	Marks      float64 `json:"marks"`
}

// Result is a marked answer sheet.
type Result struct {
	Score       float64          `json:"score"`
	MaxScore    float64          `json:"maxScore"`
	Correct     int              `json:"correct"`
	Incorrect   int              `json:"incorrect"`
	Unattempted int              `json:"unattempted"`
	Questions   []QuestionResult `json:"questions"`
}

// Score returns the total marks for answers, keyed by question ID.
func Score(qs []question.Question, answers map[string]string, scheme Scheme) float64 {
	return Evaluate(qs, answers, scheme).Score
}

// Evaluate marks every question in qs. Questions without an answer, or
// with an empty one, are unattempted and score zero.
func Evaluate(qs []question.Question, answers map[string]string, scheme Scheme) Result {
	res := Result{Questions: make([]QuestionResult, 0, len(qs))}
	for _, q := range qs {
		qr := QuestionResult{
			QuestionID: q.ID,
			Answer:     answers[q.ID],
			Expected:   q.CorrectAnswer(),
		}
		switch {
		case qr.Answer == "":
			qr.Outcome = Unattempted
			res.Unattempted++
		case IsCorrect(q, qr.Answer):
			qr.Outcome = Correct
			qr.Marks = scheme.MarksPerCorrect
			res.Correct++
		default:
			qr.Outcome = Incorrect
			qr.Marks = -scheme.NegativeMarksPerIncorrect
			res.Incorrect++
		}
		res.Score += qr.Marks
		res.MaxScore += scheme.MarksPerCorrect
		res.Questions = append(res.Questions, qr)
	}
	return res
}

// IsCorrect reports whether answer is right for q. Multiple-choice answers
// must equal the correct option exactly; numerical answers are compared as
// numbers.
func IsCorrect(q question.Question, answer string) bool {
	switch b := q.Body.(type) {
	case question.MultipleChoice:
		return answer == b.Correct
	case question.Numerical:
		n, ok := question.ParseNumber(answer)
		return ok && n == b.Correct
	}
	return false
}
