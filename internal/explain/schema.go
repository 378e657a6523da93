package explain

import "github.com/abhisek/examprep/internal/llm"

// Schema is the structured output requested for one wrong answer.
var Schema = &llm.Schema{
	Name:        "answer-explanation",
	Description: "Worked explanation of why a student's answer to an exam question is wrong",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{
				"type":        "string",
				"description": "2-4 sentences on why the correct answer is right",
			},
			"steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Worked solution, one step per entry",
			},
			"misconception": map[string]any{
				"type":        "string",
				"description": "The likely mistake behind the student's answer, in one sentence",
			},
		},
		"required":             []any{"explanation", "steps", "misconception"},
		"additionalProperties": false,
	},
}
