package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/examprep/internal/metrics"
	"github.com/abhisek/examprep/internal/retry"
)

// DefaultQueueSize bounds the number of submissions waiting for replay.
const DefaultQueueSize = 256

// ErrQueueFull is returned by Enqueue when the queue cannot take more work.
var ErrQueueFull = errors.New("analytics retry queue full")

// ReplayPolicy is the backoff used between replay rounds. It is slower
// than the store's own conflict loop so contention can drain.
func ReplayPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 6,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryQueue replays submissions whose aggregate update was lost. A single
// worker drains the queue so replays never compete with each other.
type RetryQueue struct {
	rec    Recorder
	policy retry.Policy
	logger *slog.Logger

	mu     sync.Mutex
	ch     chan Submission
	closed bool
	wg     sync.WaitGroup

	// onGiveUp, when set, sees submissions dropped after the last round.
	onGiveUp func(Submission, error)
}

// NewRetryQueue returns a stopped queue replaying through rec.
func NewRetryQueue(rec Recorder, policy retry.Policy, logger *slog.Logger) *RetryQueue {
	if policy.MaxAttempts <= 0 {
		policy = ReplayPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryQueue{
		rec:    rec,
		policy: policy,
		logger: logger,
		ch:     make(chan Submission, DefaultQueueSize),
	}
}

// OnGiveUp registers fn to run for each submission the queue drops.
func (q *RetryQueue) OnGiveUp(fn func(Submission, error)) {
	q.onGiveUp = fn
}

// Start launches the worker. It stops when ctx is done or after Close.
func (q *RetryQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-q.ch:
				if !ok {
					return
				}
				q.replay(ctx, s)
			}
		}
	}()
}

// Enqueue hands s to the worker without blocking.
func (q *RetryQueue) Enqueue(s Submission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueFull
	}
	select {
	case q.ch <- s:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for the worker to finish what is
// queued.
func (q *RetryQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *RetryQueue) replay(ctx context.Context, s Submission) {
	var lastErr error
	for round := range q.policy.MaxAttempts {
		if err := retry.Sleep(ctx, q.policy.Delay(round)); err != nil {
			lastErr = err
			break
		}
		err := q.rec.RecordAttempt(ctx, s)
		if err == nil {
			metrics.AttemptsRecorded.WithLabelValues("replayed").Inc()
			q.logger.Info("replayed lost attempt", "attempt", s.AttemptID, "test", s.TestID, "round", round+1)
			return
		}
		lastErr = err
		if errors.Is(err, ErrInvalidSubmission) {
			break
		}
		q.logger.Warn("attempt replay failed", "attempt", s.AttemptID, "round", round+1, "err", err)
	}

	metrics.AttemptsRecorded.WithLabelValues("dropped").Inc()
	q.logger.Error("giving up on attempt analytics",
		"attempt", s.AttemptID, "test", s.TestID, "student", s.Student.StudentID, "err", lastErr)
	if q.onGiveUp != nil {
		q.onGiveUp(s, lastErr)
	}
}
