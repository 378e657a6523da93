package scoring

import (
	"testing"

	"github.com/abhisek/examprep/internal/question"
)

func scenarioSet() []question.Question {
	return []question.Question{
		{ID: "q1", Body: question.MultipleChoice{Options: []string{"A", "B", "C", "D"}, Correct: "B"}},
		{ID: "q2", Body: question.Numerical{Correct: 42}},
	}
}

func TestScore_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		want    float64
	}{
		{"all correct", map[string]string{"q1": "B", "q2": "42"}, 8},
		{"wrong and unattempted", map[string]string{"q1": "A", "q2": ""}, -1},
		{"nothing answered", nil, 0},
		{"numeric forms", map[string]string{"q2": "42.0"}, 4},
		{"padded numeric", map[string]string{"q2": " 42 "}, 4},
		{"unparsable numeric", map[string]string{"q2": "forty-two"}, -1},
		{"case sensitive option", map[string]string{"q1": "b"}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(scenarioSet(), tt.answers, DefaultScheme()); got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	answers := map[string]string{"q1": "A", "q2": "42"}
	first := Score(scenarioSet(), answers, DefaultScheme())
	second := Score(scenarioSet(), answers, DefaultScheme())
	if first != second {
		t.Errorf("Score not idempotent: %v then %v", first, second)
	}
}

func TestScore_ArithmeticIndependentOfOrder(t *testing.T) {
	qs := []question.Question{
		{ID: "a", Body: question.Numerical{Correct: 1}},
		{ID: "b", Body: question.Numerical{Correct: 2}},
		{ID: "c", Body: question.Numerical{Correct: 3}},
		{ID: "d", Body: question.Numerical{Correct: 4}},
		{ID: "e", Body: question.Numerical{Correct: 5}},
	}
	answers := map[string]string{"a": "1", "b": "2", "c": "0", "d": ""}
	scheme := Scheme{MarksPerCorrect: 3, NegativeMarksPerIncorrect: 0.5}

	// c=2, w=1, u=2
	want := 2*3 - 1*0.5
	reversed := []question.Question{qs[4], qs[3], qs[2], qs[1], qs[0]}
	for _, set := range [][]question.Question{qs, reversed} {
		res := Evaluate(set, answers, scheme)
		if res.Score != want {
			t.Errorf("Score = %v, want %v", res.Score, want)
		}
		if res.Correct != 2 || res.Incorrect != 1 || res.Unattempted != 2 {
			t.Errorf("counts = %d/%d/%d, want 2/1/2", res.Correct, res.Incorrect, res.Unattempted)
		}
		if res.MaxScore != 15 {
			t.Errorf("MaxScore = %v, want 15", res.MaxScore)
		}
	}
}

func TestEvaluate_PerQuestionOutcomes(t *testing.T) {
	res := Evaluate(scenarioSet(), map[string]string{"q1": "A"}, DefaultScheme())
	if len(res.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(res.Questions))
	}

	q1 := res.Questions[0]
	if q1.Outcome != Incorrect || q1.Marks != -1 || q1.Expected != "B" {
		t.Errorf("q1 = %+v", q1)
	}
	q2 := res.Questions[1]
	if q2.Outcome != Unattempted || q2.Marks != 0 || q2.Expected != "42" {
		t.Errorf("q2 = %+v", q2)
	}
}

func TestSchemeValidate(t *testing.T) {
	if err := DefaultScheme().Validate(); err != nil {
		t.Errorf("default scheme invalid: %v", err)
	}
	if err := (Scheme{MarksPerCorrect: 4, NegativeMarksPerIncorrect: -1}).Validate(); err == nil {
		t.Error("expected error for signed negative marks")
	}
}
