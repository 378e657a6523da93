package explain

import (
	"fmt"
	"strings"

	"github.com/abhisek/examprep/internal/question"
)

const systemPrompt = `You are a tutor reviewing a student's exam paper for an entrance exam. For a question the student got wrong, explain the correct solution clearly and briefly, and name the likely mistake.`

func buildUserMessage(q question.Question, given string) string {
	var b strings.Builder

	if q.SubjectName != "" || q.TopicName != "" {
		fmt.Fprintf(&b, "Subject: %s\nTopic: %s\n", q.SubjectName, q.TopicName)
	}
	fmt.Fprintf(&b, "Question: %s\n", q.Text)

	switch body := q.Body.(type) {
	case question.MultipleChoice:
		b.WriteString("Options:\n")
		for i, opt := range body.Options {
			fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
		}
	case question.Numerical:
		b.WriteString("Answer type: numerical\n")
	}

	fmt.Fprintf(&b, "Correct answer: %s\n", q.CorrectAnswer())
	fmt.Fprintf(&b, "Student's answer: %s\n", given)
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Author's note: %s\n", q.Explanation)
	}

	b.WriteString(`
Instructions:
1. Explain in 2-4 sentences why the correct answer is right.
2. Give the worked solution as a list of short steps.
3. In one sentence, name the mistake that most likely led to the student's answer.
4. Use plain text for math. No LaTeX.`)

	return b.String()
}
