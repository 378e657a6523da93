// Package question defines the exam question model, its authoring
// invariants, and the mapping to and from stored documents.
package question

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// OptionCount is the number of options on a multiple-choice question.
const OptionCount = 4

// ErrInvalid is wrapped by every authoring validation failure.
var ErrInvalid = errors.New("invalid question")

// Kind identifies the answer format of a question.
type Kind string

const (
	KindMultipleChoice Kind = "mcq"
	KindNumerical      Kind = "numerical"
)

// AccessTier gates questions behind a subscription.
type AccessTier string

const (
	AccessFree AccessTier = "free"
	AccessPaid AccessTier = "paid"
)

// ParseAccessTier accepts "free" or "paid" in any case.
func ParseAccessTier(s string) (AccessTier, bool) {
	switch AccessTier(strings.ToLower(strings.TrimSpace(s))) {
	case AccessFree:
		return AccessFree, true
	case AccessPaid:
		return AccessPaid, true
	}
	return "", false
}

// Body is the kind-specific part of a question. The only implementations
// are MultipleChoice and Numerical.
type Body interface {
	Kind() Kind
	sealed()
}

// MultipleChoice is answered by picking one of Options.
type MultipleChoice struct {
	Options []string

	// Correct is the text of the correct option.
	Correct string
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (MultipleChoice) sealed()    {}

// Numerical is answered by typing a number.
type Numerical struct {
	Correct float64
}

func (Numerical) Kind() Kind { return KindNumerical }
func (Numerical) sealed()    {}

// Question is a single exam question.
type Question struct {
	ID   string
	Text string
	Body Body

	TopicID   string
	SubjectID string
	ClassID   string
	ExamType  string

	// Display names resolved at fetch time.
	TopicName   string
	SubjectName string

	Difficulty string
	Access     AccessTier

	Images            []string
	Explanation       string
	ExplanationImages []string

	// OwnerID is the author; only the owner may edit or delete.
	OwnerID string
}

// Kind returns the answer format, or "" when Body is unset.
func (q Question) Kind() Kind {
	if q.Body == nil {
		return ""
	}
	return q.Body.Kind()
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	c := q
	c.Images = slices.Clone(q.Images)
	c.ExplanationImages = slices.Clone(q.ExplanationImages)
	if mc, ok := q.Body.(MultipleChoice); ok {
		mc.Options = slices.Clone(mc.Options)
		c.Body = mc
	}
	return c
}

// CorrectAnswer returns the correct answer as display text.
func (q Question) CorrectAnswer() string {
	switch b := q.Body.(type) {
	case MultipleChoice:
		return b.Correct
	case Numerical:
		return FormatNumber(b.Correct)
	}
	return ""
}

// Validate checks the authoring invariants. It is not applied to
// questions already loaded into a session.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if strings.TrimSpace(q.Text) == "" && len(q.Images) == 0 {
		return fmt.Errorf("%w: question %s has no text or image", ErrInvalid, q.ID)
	}
	if q.TopicID == "" {
		return fmt.Errorf("%w: question %s has no topic", ErrInvalid, q.ID)
	}
	if q.Access != AccessFree && q.Access != AccessPaid {
		return fmt.Errorf("%w: question %s has access tier %q", ErrInvalid, q.ID, q.Access)
	}

	switch b := q.Body.(type) {
	case MultipleChoice:
		if len(b.Options) != OptionCount {
			return fmt.Errorf("%w: question %s has %d options, want %d", ErrInvalid, q.ID, len(b.Options), OptionCount)
		}
		for i, o := range b.Options {
			if strings.TrimSpace(o) == "" {
				return fmt.Errorf("%w: question %s option %d is empty", ErrInvalid, q.ID, i+1)
			}
		}
		if !slices.Contains(b.Options, b.Correct) {
			return fmt.Errorf("%w: question %s correct answer %q is not one of its options", ErrInvalid, q.ID, b.Correct)
		}
	case Numerical:
		if math.IsNaN(b.Correct) || math.IsInf(b.Correct, 0) {
			return fmt.Errorf("%w: question %s correct answer is not finite", ErrInvalid, q.ID)
		}
	case nil:
		return fmt.Errorf("%w: question %s has no answer body", ErrInvalid, q.ID)
	}
	return nil
}

// ParseNumber normalises a numeric answer. "42", 42 and "42.0" all yield
// 42. Non-finite values and unparsable strings report false.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders a number without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
