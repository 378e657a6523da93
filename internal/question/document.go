package question

import (
	"fmt"
	"strings"

	"github.com/abhisek/examprep/internal/docstore"
)

// Collections.
const (
	Collection        = "questions"
	SubjectCollection = "subjects"
	TopicCollection   = "topics"
)

// Stored field names. Filters are expressed against these.
const (
	FieldText              = "question"
	FieldType              = "type"
	FieldOptions           = "options"
	FieldCorrectAnswer     = "correctAnswer"
	FieldTopicID           = "topicId"
	FieldSubjectID         = "subjectId"
	FieldClassID           = "classId"
	FieldExamType          = "examType"
	FieldDifficulty        = "difficultyLevel"
	FieldAccess            = "accessLevel"
	FieldImages            = "questionImages"
	FieldExplanation       = "explanation"
	FieldExplanationImages = "explanationImages"
	FieldOwner             = "createdBy"
	FieldTopicName         = "topicName"
	FieldName              = "name"
)

// Older documents used these shapes before the schema settled.
const (
	legacyImage            = "questionImage"
	legacyExplanationImage = "explanationImage"
	legacyText             = "questionText"
	legacyType             = "questionType"
	legacyAnswer           = "answer"
	legacyOwner            = "teacherId"
)

// FromDocument builds a Question from a stored document, accepting every
// historical schema: single image strings or arrays, options as an array
// or option1..option4 fields, and correct answers stored as strings or
// numbers.
func FromDocument(doc docstore.Document) (Question, error) {
	q := Question{
		ID:          doc.ID,
		Text:        doc.String(FieldText, legacyText, "text"),
		TopicID:     doc.String(FieldTopicID),
		SubjectID:   doc.String(FieldSubjectID),
		ClassID:     doc.String(FieldClassID),
		ExamType:    doc.String(FieldExamType),
		Difficulty:  doc.String(FieldDifficulty),
		Explanation: doc.String(FieldExplanation),
		OwnerID:     doc.String(FieldOwner, legacyOwner),
		Images:      imageList(doc, FieldImages, legacyImage),
	}
	q.ExplanationImages = imageList(doc, FieldExplanationImages, legacyExplanationImage)
	q.TopicName = doc.String(FieldTopicName)

	q.Access = AccessFree
	if a, ok := ParseAccessTier(doc.String(FieldAccess)); ok {
		q.Access = a
	}

	options := optionList(doc)
	kind, ok := parseKind(doc.String(FieldType, legacyType))
	if !ok {
		// Untyped legacy documents: options imply multiple choice.
		kind = KindNumerical
		if len(options) > 0 {
			kind = KindMultipleChoice
		}
	}

	switch kind {
	case KindMultipleChoice:
		q.Body = MultipleChoice{
			Options: options,
			Correct: doc.String(FieldCorrectAnswer, legacyAnswer),
		}
	case KindNumerical:
		raw, _ := doc.Lookup(FieldCorrectAnswer)
		if raw == nil {
			raw, _ = doc.Lookup(legacyAnswer)
		}
		n, ok := ParseNumber(raw)
		if !ok {
			return Question{}, fmt.Errorf("question %s: numerical answer %v is not a number", doc.ID, raw)
		}
		q.Body = Numerical{Correct: n}
	}
	return q, nil
}

// Document converts q to the canonical stored shape.
func (q Question) Document() docstore.Document {
	data := map[string]any{
		FieldText:              q.Text,
		FieldTopicID:           q.TopicID,
		FieldSubjectID:         q.SubjectID,
		FieldClassID:           q.ClassID,
		FieldExamType:          q.ExamType,
		FieldDifficulty:        q.Difficulty,
		FieldAccess:            string(q.Access),
		FieldImages:            stringsToAny(q.Images),
		FieldExplanation:       q.Explanation,
		FieldExplanationImages: stringsToAny(q.ExplanationImages),
		FieldOwner:             q.OwnerID,
	}
	if q.TopicName != "" {
		data[FieldTopicName] = q.TopicName
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		data[FieldType] = string(KindMultipleChoice)
		data[FieldOptions] = stringsToAny(b.Options)
		data[FieldCorrectAnswer] = b.Correct
	case Numerical:
		data[FieldType] = string(KindNumerical)
		data[FieldCorrectAnswer] = b.Correct
	}
	return docstore.Document{ID: q.ID, Data: data}
}

func parseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "mcq", "multiplechoice", "singlecorrect", "objective":
		return KindMultipleChoice, true
	case "numerical", "numeric", "integer", "integertype", "nat":
		return KindNumerical, true
	}
	return "", false
}

func imageList(doc docstore.Document, field, legacy string) []string {
	if imgs, ok := doc.Strings(field); ok && len(imgs) > 0 {
		return imgs
	}
	if imgs, ok := doc.Strings(legacy); ok && len(imgs) > 0 {
		return imgs
	}
	return nil
}

func optionList(doc docstore.Document) []string {
	if v, ok := doc.Lookup(FieldOptions); ok {
		if arr, ok := v.([]any); ok {
			opts := make([]string, 0, len(arr))
			for _, o := range arr {
				switch x := o.(type) {
				case string:
					opts = append(opts, x)
				case float64:
					opts = append(opts, FormatNumber(x))
				}
			}
			return opts
		}
	}

	var opts []string
	for i := 1; i <= OptionCount; i++ {
		o := doc.String(fmt.Sprintf("option%d", i), fmt.Sprintf("option%c", 'A'+i-1))
		if o == "" {
			continue
		}
		opts = append(opts, o)
	}
	return opts
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Subject is a top-level syllabus grouping.
type Subject struct {
	ID   string
	Name string
}

// Topic belongs to a subject; questions are drawn per topic.
type Topic struct {
	ID        string
	Name      string
	SubjectID string
}

// Document converts s to its stored shape.
func (s Subject) Document() docstore.Document {
	return docstore.Document{ID: s.ID, Data: map[string]any{FieldName: s.Name}}
}

// Document converts t to its stored shape.
func (t Topic) Document() docstore.Document {
	return docstore.Document{ID: t.ID, Data: map[string]any{FieldName: t.Name, FieldSubjectID: t.SubjectID}}
}
