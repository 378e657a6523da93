package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
)

func (a *API) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": a.sessions.len()})
}

// HandleStartSession opens a session from the criteria in the query
// string. Malformed criteria entries are skipped and echoed back as
// warnings.
func (a *API) HandleStartSession(c *gin.Context) {
	set, issues := criteria.Parse(c.Request.URL.Query())
	if set.Empty() {
		writeError(c, http.StatusBadRequest, "at least one topic is required", nil)
		return
	}
	minutes, err := parseMinutes(c, a.cfg.MaxDuration)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	student := currentIdentity(c)
	att, err := a.exam.Start(c.Request.Context(), student, exam.Config{
		TestID:   strings.TrimSpace(c.Query("testId")),
		Criteria: set,
		Duration: minutes,
	})
	if err != nil {
		a.logger.Warn("start session", "student", student.StudentID, "criteria", set.Encode(), "err", err)
		writeServiceError(c, err)
		return
	}
	a.sessions.add(att)

	warnings := make([]string, 0, len(issues))
	for _, is := range issues {
		warnings = append(warnings, is.String())
	}
	c.JSON(http.StatusCreated, toSessionResponse(att, warnings))
}

func (a *API) HandleGetSession(c *gin.Context) {
	att, err := a.sessions.get(c.Param("id"), currentIdentity(c).StudentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(att, nil))
}

// HandleSessionEvent applies one palette or answer event and returns the
// updated session.
func (a *API) HandleSessionEvent(c *gin.Context) {
	att, err := a.sessions.get(c.Param("id"), currentIdentity(c).StudentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s := att.Session
	switch req.Type {
	case "select":
		if req.Index == nil {
			writeError(c, http.StatusBadRequest, "index is required for select", nil)
			return
		}
		err = s.SelectQuestion(*req.Index)
	case "answer":
		err = s.AnswerChangeChecked(req.Value, checkAnswer)
	case "mark":
		err = s.MarkForReview()
	case "clear":
		err = s.ClearResponse()
	case "next":
		err = s.SaveAndNext()
	default:
		writeError(c, http.StatusBadRequest, "unknown event type "+req.Type, nil)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(att, nil))
}

// HandleSubmit scores the session. Repeating it, or submitting after the
// timer did, returns the first result with alreadySubmitted set.
func (a *API) HandleSubmit(c *gin.Context) {
	id := c.Param("id")
	att, err := a.sessions.get(id, currentIdentity(c).StudentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// A client hanging up must not cut the analytics write short.
	ctx := context.WithoutCancel(c.Request.Context())
	out, first, err := att.Submit(ctx, exam.TriggerManual)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	a.sessions.stopTimer(id)

	c.JSON(http.StatusOK, submitResponse{Outcome: out, AlreadySubmitted: !first})
}

func (a *API) HandleTestAnalytics(c *gin.Context) {
	testID := c.Param("id")
	ta, err := a.analytics.Get(c.Request.Context(), testID)
	if err != nil {
		a.logger.Error("load test analytics", "test", testID, "err", err)
		writeServiceError(c, err)
		return
	}
	if ta == nil {
		writeError(c, http.StatusNotFound, "no attempts recorded for this test", nil)
		return
	}
	ta.TestID = testID
	c.JSON(http.StatusOK, gin.H{"testId": testID, "analytics": ta})
}

func (a *API) HandleLeaderboard(c *gin.Context) {
	testID := c.Param("id")
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	attempts, err := a.analytics.Leaderboard(c.Request.Context(), testID, limit)
	if err != nil {
		a.logger.Error("load leaderboard", "test", testID, "err", err)
		writeServiceError(c, err)
		return
	}

	resp := leaderboardResponse{TestID: testID, Leaderboard: make([]leaderboardEntryResponse, 0, len(attempts))}
	for i, at := range attempts {
		resp.Leaderboard = append(resp.Leaderboard, leaderboardEntryResponse{
			Rank:             i + 1,
			StudentID:        at.StudentID,
			StudentName:      at.StudentName,
			Score:            at.Score,
			TimeTakenMinutes: at.TimeTakenMinutes,
			SubmittedAt:      at.SubmittedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// HandleExplanations explains the wrong answers of one of the caller's
// submitted attempts.
func (a *API) HandleExplanations(c *gin.Context) {
	if a.explainer == nil {
		writeServiceError(c, explain.ErrDisabled)
		return
	}
	attemptID := c.Param("id")
	exps, err := a.explainer.ForAttempt(c.Request.Context(), attemptID, currentIdentity(c).StudentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if exps == nil {
		exps = []explain.Explanation{}
	}
	c.JSON(http.StatusOK, explanationsResponse{AttemptID: attemptID, Explanations: exps})
}
