// Package exam wires the question bank, the session state machine,
// scoring and analytics into the start-to-submit flow of one attempt.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/events"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/metrics"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/questionbank"
	"github.com/abhisek/examprep/internal/scoring"
	"github.com/abhisek/examprep/internal/session"
)

// ErrNoQuestions means the criteria matched nothing. It is a normal
// outcome, shown as an explanatory empty state.
var ErrNoQuestions = errors.New("could not load any questions")

// Fetcher draws question sets.
type Fetcher interface {
	FetchWithReport(ctx context.Context, c criteria.Set) ([]question.Question, questionbank.Report, error)
}

// Enqueuer accepts submissions for a later analytics replay.
type Enqueuer interface {
	Enqueue(s analytics.Submission) error
}

// Trigger records what ended an attempt.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerTimer  Trigger = "timer"
)

// Config describes the attempt to start.
type Config struct {
	// TestID groups attempts for analytics. Empty derives an ID from the
	// criteria, so identical practice sets share a leaderboard.
	TestID   string
	Criteria criteria.Set

	// Duration is the time limit; zero uses session.DefaultDuration.
	Duration time.Duration
}

// Service starts attempts.
type Service struct {
	bank      Fetcher
	recorder  analytics.Recorder
	queue     Enqueuer
	publisher events.Publisher
	scheme    scoring.Scheme
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithQueue hands lost aggregate updates to q.
func WithQueue(q Enqueuer) Option { return func(s *Service) { s.queue = q } }

// WithPublisher publishes attempt events.
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithScheme sets the marking scheme.
func WithScheme(sc scoring.Scheme) Option { return func(s *Service) { s.scheme = sc } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator replaces the UUID attempt IDs.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService returns a Service drawing from bank and recording to rec.
func NewService(bank Fetcher, rec analytics.Recorder, opts ...Option) *Service {
	s := &Service{
		bank:      bank,
		recorder:  rec,
		publisher: events.Nop{},
		scheme:    scoring.DefaultScheme(),
		logger:    logging.Discard(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scheme returns the marking scheme in use.
func (s *Service) Scheme() scoring.Scheme { return s.scheme }

// Start fetches a question set and opens an attempt on it. A degraded
// fetch still starts; the report is on the attempt.
func (s *Service) Start(ctx context.Context, student identity.Identity, cfg Config) (*Attempt, error) {
	if student.StudentID == "" {
		return nil, fmt.Errorf("start attempt: %w", identity.ErrUnauthenticated)
	}

	qs, report, err := s.bank.FetchWithReport(ctx, cfg.Criteria)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}

	testID := cfg.TestID
	if testID == "" {
		testID = "practice:" + cfg.Criteria.Encode()
	}

	id := s.newID()
	a := &Attempt{
		ID:        id,
		TestID:    testID,
		Student:   student,
		Session:   session.New(id, qs),
		Countdown: session.NewCountdown(cfg.Duration),
		Report:    report,
		StartedAt: s.now(),
		svc:       s,
		done:      make(chan struct{}),
	}
	metrics.ActiveSessions.Inc()
	s.logger.Info("attempt started", "attempt", id, "test", testID, "student", student.StudentID,
		"questions", len(qs), "degraded", report.Degraded())
	return a, nil
}

// Outcome is the result of a submitted attempt.
type Outcome struct {
	AttemptID        string         `json:"attemptId"`
	TestID           string         `json:"testId"`
	Trigger          Trigger        `json:"trigger"`
	Result           scoring.Result `json:"result"`
	TimeTakenMinutes float64        `json:"timeTakenMinutes"`
	SubmittedAt      time.Time      `json:"submittedAt"`

	// Recorded is false when the analytics update did not go through.
	// AggregateQueued then says whether it was handed off for replay.
	Recorded        bool `json:"recorded"`
	AggregateQueued bool `json:"aggregateQueued"`
}

// Attempt is one student working through one question set.
type Attempt struct {
	ID        string
	TestID    string
	Student   identity.Identity
	Session   *session.Session
	Countdown *session.Countdown
	Report    questionbank.Report
	StartedAt time.Time

	svc *Service

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// Submit scores the attempt and records it. Only the first call, whether
// from the submit button or the timer, does the work and reports true;
// later calls wait for that result and report false. Analytics failures
// never fail the submission.
func (a *Attempt) Submit(ctx context.Context, trigger Trigger) (Outcome, bool, error) {
	if !a.Session.Finish() {
		select {
		case <-a.done:
			return a.outcome, false, nil
		case <-ctx.Done():
			return Outcome{}, false, ctx.Err()
		}
	}
	defer a.once.Do(func() { close(a.done) })

	s := a.svc
	now := s.now()
	result := scoring.Evaluate(a.Session.Questions(), a.Session.Answers(), s.scheme)

	out := Outcome{
		AttemptID:        a.ID,
		TestID:           a.TestID,
		Trigger:          trigger,
		Result:           result,
		TimeTakenMinutes: a.timeTaken(now, trigger),
		SubmittedAt:      now,
	}

	sub := analytics.Submission{
		AttemptID:        a.ID,
		TestID:           a.TestID,
		Student:          a.Student,
		Score:            result.Score,
		TimeTakenMinutes: out.TimeTakenMinutes,
		Answers:          a.Session.Answers(),
		Statuses:         a.Session.Statuses(),
		Key:              answerKey(a.Session.Questions()),
		SubmittedAt:      now,
	}

	metrics.Submissions.WithLabelValues(string(trigger)).Inc()
	metrics.ActiveSessions.Dec()

	ev := events.AttemptEvent{
		Type:             events.AttemptRecorded,
		AttemptID:        a.ID,
		TestID:           a.TestID,
		StudentID:        a.Student.StudentID,
		Score:            result.Score,
		MaxScore:         result.MaxScore,
		TimeTakenMinutes: out.TimeTakenMinutes,
		Timestamp:        now.UTC(),
	}

	if err := s.recorder.RecordAttempt(ctx, sub); err != nil {
		s.logger.Error("test analytics not updated", "attempt", a.ID, "test", a.TestID, "err", err)
		ev.Type = events.AttemptAggregateLost
		ev.Error = err.Error()
		if s.queue != nil && !errors.Is(err, analytics.ErrInvalidSubmission) {
			if qerr := s.queue.Enqueue(sub); qerr != nil {
				s.logger.Error("could not queue analytics replay", "attempt", a.ID, "err", qerr)
			} else {
				out.AggregateQueued = true
			}
		}
	} else {
		out.Recorded = true
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish attempt event", "type", ev.Type, "attempt", a.ID, "err", err)
	}

	s.logger.Info("attempt submitted", "attempt", a.ID, "trigger", trigger,
		"score", result.Score, "recorded", out.Recorded)
	a.outcome = out
	return out, true, nil
}

// Outcome returns the submission result once Submit has completed.
func (a *Attempt) Outcome() (Outcome, bool) {
	select {
	case <-a.done:
		return a.outcome, true
	default:
		return Outcome{}, false
	}
}

// Abandon closes the attempt without recording it. It reports false when
// the attempt was already submitted or abandoned.
func (a *Attempt) Abandon() bool {
	if !a.Session.Finish() {
		return false
	}
	metrics.ActiveSessions.Dec()
	a.once.Do(func() { close(a.done) })
	a.svc.logger.Info("attempt abandoned", "attempt", a.ID)
	return true
}

// RunTimer drives the countdown and submits when it expires. It returns
// when ctx is done or after the timed submission.
func (a *Attempt) RunTimer(ctx context.Context) {
	a.Countdown.Run(ctx, func() {
		if _, first, err := a.Submit(ctx, TriggerTimer); err != nil {
			a.svc.logger.Error("timed submission failed", "attempt", a.ID, "err", err)
		} else if first {
			a.svc.logger.Info("time up, attempt submitted", "attempt", a.ID)
		}
	})
}

func answerKey(qs []question.Question) map[string]string {
	key := make(map[string]string, len(qs))
	for _, q := range qs {
		key[q.ID] = q.CorrectAnswer()
	}
	return key
}

// timeTaken is the wall time since start, capped at the time limit. A
// timed submission used the whole limit.
func (a *Attempt) timeTaken(now time.Time, trigger Trigger) float64 {
	limit := a.Countdown.Total()
	d := now.Sub(a.StartedAt)
	if trigger == TriggerTimer || d > limit {
		d = limit
	}
	if d < 0 {
		d = 0
	}
	return d.Minutes()
}
