package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/session"
)

const (
	identityKey        = "identity"
	defaultLeaderboard = 10
)

var errInvalidAnswer = errors.New("invalid answer")

func writeError(c *gin.Context, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errSessionNotFound):
		writeError(c, http.StatusNotFound, "session not found", nil)
	case errors.Is(err, exam.ErrNoQuestions):
		writeError(c, http.StatusNotFound, "no questions match the selection", nil)
	case errors.Is(err, session.ErrFinished):
		writeError(c, http.StatusConflict, "session already submitted", nil)
	case errors.Is(err, session.ErrLastQuestion):
		writeError(c, http.StatusConflict, "already at the last question", nil)
	case errors.Is(err, session.ErrOutOfRange), errors.Is(err, errInvalidAnswer):
		writeError(c, http.StatusBadRequest, "invalid event", err)
	case errors.Is(err, explain.ErrDisabled):
		writeError(c, http.StatusServiceUnavailable, "explanations are not configured", nil)
	case errors.Is(err, explain.ErrAttemptNotFound):
		writeError(c, http.StatusNotFound, "attempt not found", nil)
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, "unauthenticated", nil)
	default:
		writeError(c, http.StatusInternalServerError, "request failed", nil)
	}
}

func currentIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	return identity.Identity{}
}

// parseMinutes reads the time limit. Absent means the session default.
func parseMinutes(c *gin.Context, limit time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(c.Query("minutes"))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.New("minutes must be a positive integer")
	}
	d := time.Duration(n) * time.Minute
	if d > limit {
		return 0, errors.New("minutes exceeds the allowed maximum of " + strconv.Itoa(int(limit.Minutes())))
	}
	return d, nil
}

// parseLimit reads the leaderboard size. Zero or less means everyone.
func parseLimit(c *gin.Context) (int, error) {
	value := strings.TrimSpace(c.Query("limit"))
	if value == "" {
		return defaultLeaderboard, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return n, nil
}

// checkAnswer rejects values the question cannot accept: an option that
// does not exist, or text that is not a number.
func checkAnswer(q question.Question, value string) error {
	if value == "" {
		return nil
	}
	switch b := q.Body.(type) {
	case question.MultipleChoice:
		for _, o := range b.Options {
			if o == value {
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not one of the options", errInvalidAnswer, value)
	case question.Numerical:
		if _, ok := question.ParseNumber(value); !ok {
			return fmt.Errorf("%w: %q is not a number", errInvalidAnswer, value)
		}
	}
	return nil
}
