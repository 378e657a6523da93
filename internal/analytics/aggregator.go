package analytics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/metrics"
)

var (
	// ErrAggregateLost wraps a RecordAttempt failure after the store gave
	// up retrying conflicting transactions.
	ErrAggregateLost = errors.New("test analytics update lost")

	ErrInvalidSubmission = errors.New("invalid submission")
)

// Recorder is the write side of the aggregator.
type Recorder interface {
	RecordAttempt(ctx context.Context, s Submission) error
}

// Aggregator maintains test analytics in a document store.
type Aggregator struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an Aggregator writing to store.
func NewAggregator(store docstore.Store, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RecordAttempt writes the attempt record and folds it into the test's
// aggregate in one transaction. Recording the same AttemptID twice is a
// no-op. When the transaction keeps conflicting the error wraps
// ErrAggregateLost and nothing was written.
func (a *Aggregator) RecordAttempt(ctx context.Context, s Submission) error {
	if err := s.Validate(); err != nil {
		return err
	}

	start := time.Now()
	outcome := "recorded"
	defer func() {
		metrics.AttemptsRecorded.WithLabelValues(outcome).Inc()
		metrics.RecordDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	var duplicate bool
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		duplicate = false
		existing, err := tx.Get(ctx, AttemptCollection, s.AttemptID)
		if err != nil {
			return fmt.Errorf("read attempt: %w", err)
		}
		if existing != nil {
			duplicate = true
			return nil
		}

		var prev *TestAnalytics
		doc, err := tx.Get(ctx, AnalyticsCollection, s.TestID)
		if err != nil {
			return fmt.Errorf("read test analytics: %w", err)
		}
		if doc != nil {
			if prev, err = decodeAnalytics(*doc); err != nil {
				return err
			}
		}

		now := a.now().UTC()
		next := Fold(prev, s, now)
		aggDoc, err := toDocument(s.TestID, next)
		if err != nil {
			return err
		}
		attemptDoc, err := toDocument(s.AttemptID, attemptFromSubmission(s, now))
		if err != nil {
			return err
		}
		tx.Set(AnalyticsCollection, aggDoc)
		tx.Create(AttemptCollection, attemptDoc)
		return nil
	})

	switch {
	case err == nil && duplicate:
		outcome = "duplicate"
		a.logger.Debug("attempt already recorded", "attempt", s.AttemptID)
		return nil
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrAlreadyExists):
		// A concurrent replay created the attempt first.
		outcome = "duplicate"
		return nil
	case errors.Is(err, docstore.ErrTxExhausted):
		outcome = "lost"
		return fmt.Errorf("record attempt %s for test %s: %w: %w", s.AttemptID, s.TestID, ErrAggregateLost, err)
	default:
		outcome = "error"
		return fmt.Errorf("record attempt %s for test %s: %w", s.AttemptID, s.TestID, err)
	}
}

// Get returns the aggregate for testID, or nil before the first attempt.
func (a *Aggregator) Get(ctx context.Context, testID string) (*TestAnalytics, error) {
	doc, err := a.store.Get(ctx, AnalyticsCollection, testID)
	if err != nil {
		return nil, fmt.Errorf("get test analytics %s: %w", testID, err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeAnalytics(*doc)
}

// GetAttempt returns one attempt record, or nil when it does not exist.
func (a *Aggregator) GetAttempt(ctx context.Context, attemptID string) (*Attempt, error) {
	doc, err := a.store.Get(ctx, AttemptCollection, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt %s: %w", attemptID, err)
	}
	if doc == nil {
		return nil, nil
	}
	at, err := decodeAttempt(*doc)
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// Leaderboard returns the best attempts at testID: highest score first,
// earlier submissions ahead on ties. A limit of zero returns all.
func (a *Aggregator) Leaderboard(ctx context.Context, testID string, limit int) ([]Attempt, error) {
	attempts, err := a.attempts(ctx, docstore.Where("testId", docstore.OpEq, testID))
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", testID, err)
	}
	slices.SortStableFunc(attempts, func(x, y Attempt) int {
		if c := cmp.Compare(y.Score, x.Score); c != 0 {
			return c
		}
		return x.SubmittedAt.Compare(y.SubmittedAt)
	})
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

// StudentAttempts returns a student's attempts, newest first.
func (a *Aggregator) StudentAttempts(ctx context.Context, studentID string) ([]Attempt, error) {
	attempts, err := a.attempts(ctx, docstore.Where("studentId", docstore.OpEq, studentID))
	if err != nil {
		return nil, fmt.Errorf("attempts of %s: %w", studentID, err)
	}
	slices.SortStableFunc(attempts, func(x, y Attempt) int {
		return y.SubmittedAt.Compare(x.SubmittedAt)
	})
	return attempts, nil
}

func (a *Aggregator) attempts(ctx context.Context, f docstore.Filter) ([]Attempt, error) {
	docs, err := a.store.Query(ctx, AttemptCollection, docstore.Query{Filters: []docstore.Filter{f}})
	if err != nil {
		return nil, err
	}
	out := make([]Attempt, 0, len(docs))
	for _, d := range docs {
		at, err := decodeAttempt(d)
		if err != nil {
			a.logger.Warn("skipping unreadable attempt", "id", d.ID, "err", err)
			continue
		}
		out = append(out, at)
	}
	return out, nil
}
