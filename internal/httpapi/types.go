package httpapi

import (
	"time"

	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/session"
)

// questionResponse never carries the correct answer or the author's
// explanation; both stay server side until submission.
type questionResponse struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Kind        string   `json:"kind"`
	Options     []string `json:"options,omitempty"`
	TopicID     string   `json:"topicId"`
	TopicName   string   `json:"topicName,omitempty"`
	SubjectName string   `json:"subjectName,omitempty"`
	Difficulty  string   `json:"difficultyLevel,omitempty"`
	Images      []string `json:"images,omitempty"`
}

type sessionResponse struct {
	ID               string             `json:"id"`
	TestID           string             `json:"testId"`
	Questions        []questionResponse `json:"questions"`
	Entries          []session.Entry    `json:"entries"`
	Cursor           int                `json:"cursor"`
	Finished         bool               `json:"finished"`
	Summary          session.Summary    `json:"summary"`
	RemainingSeconds int                `json:"remainingSeconds"`
	StartedAt        time.Time          `json:"startedAt"`

	// FailedTopics lists topics whose questions could not be loaded.
	FailedTopics []string `json:"failedTopics,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

type eventRequest struct {
	Type  string `json:"type" binding:"required"`
	Index *int   `json:"index"`
	Value string `json:"value"`
}

type submitResponse struct {
	exam.Outcome
	AlreadySubmitted bool `json:"alreadySubmitted"`
}

type leaderboardEntryResponse struct {
	Rank             int       `json:"rank"`
	StudentID        string    `json:"studentId"`
	StudentName      string    `json:"studentName"`
	Score            float64   `json:"score"`
	TimeTakenMinutes float64   `json:"timeTakenMinutes"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

type leaderboardResponse struct {
	TestID      string                     `json:"testId"`
	Leaderboard []leaderboardEntryResponse `json:"leaderboard"`
}

type explanationsResponse struct {
	AttemptID    string                `json:"attemptId"`
	Explanations []explain.Explanation `json:"explanations"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toQuestionResponse(q question.Question) questionResponse {
	r := questionResponse{
		ID:          q.ID,
		Text:        q.Text,
		Kind:        string(q.Kind()),
		TopicID:     q.TopicID,
		TopicName:   q.TopicName,
		SubjectName: q.SubjectName,
		Difficulty:  q.Difficulty,
		Images:      q.Images,
	}
	if mc, ok := q.Body.(question.MultipleChoice); ok {
		r.Options = mc.Options
	}
	return r
}

func toSessionResponse(a *exam.Attempt, warnings []string) sessionResponse {
	snap := a.Session.Snapshot()
	qs := make([]questionResponse, len(snap.Questions))
	for i, q := range snap.Questions {
		qs[i] = toQuestionResponse(q)
	}
	return sessionResponse{
		ID:               a.ID,
		TestID:           a.TestID,
		Questions:        qs,
		Entries:          snap.Entries,
		Cursor:           snap.Cursor,
		Finished:         snap.Finished,
		Summary:          snap.Summary,
		RemainingSeconds: int(a.Countdown.Remaining() / time.Second),
		StartedAt:        a.StartedAt,
		FailedTopics:     a.Report.Failed,
		Warnings:         warnings,
	}
}
