// Package httpapi serves practice sessions, test analytics and answer
// explanations over HTTP for web clients.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/logging"
)

// Starter opens attempts.
type Starter interface {
	Start(ctx context.Context, student identity.Identity, cfg exam.Config) (*exam.Attempt, error)
}

// Analytics reads test aggregates and attempts.
type Analytics interface {
	Get(ctx context.Context, testID string) (*analytics.TestAnalytics, error)
	Leaderboard(ctx context.Context, testID string, limit int) ([]analytics.Attempt, error)
}

// Explainer explains stored attempts.
type Explainer interface {
	ForAttempt(ctx context.Context, attemptID, studentID string) ([]explain.Explanation, error)
}

// Verifier turns a bearer token into an identity.
type Verifier interface {
	Verify(token string) (identity.Identity, error)
}

// Deps are the services behind the API. Explainer may be nil.
type Deps struct {
	Exam      Starter
	Analytics Analytics
	Explainer Explainer
	Verifier  Verifier
	Logger    *slog.Logger
}

// Config tunes the server.
type Config struct {
	CORSOrigins []string

	// Retention is how long a submitted session stays readable.
	Retention time.Duration

	// MaxDuration caps the minutes a client may ask for.
	MaxDuration time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		CORSOrigins: []string{"*"},
		Retention:   time.Hour,
		MaxDuration: 3 * time.Hour,
	}
}

// API holds the handlers and the live sessions.
type API struct {
	exam      Starter
	analytics Analytics
	explainer Explainer
	verifier  Verifier
	logger    *slog.Logger
	cfg       Config
	sessions  *registry
}

// NewAPI returns an API over deps.
func NewAPI(cfg Config, deps Deps) *API {
	logger := logging.OrDiscard(deps.Logger)
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultConfig().MaxDuration
	}
	return &API{
		exam:      deps.Exam,
		analytics: deps.Analytics,
		explainer: deps.Explainer,
		verifier:  deps.Verifier,
		logger:    logger,
		cfg:       cfg,
		sessions:  newRegistry(cfg.Retention, logger),
	}
}

// Close stops every session timer and abandons sessions that were never
// submitted.
func (a *API) Close() {
	a.sessions.close()
}
