package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/examprep/internal/exam"
)

var errSessionNotFound = errors.New("session not found")

type liveSession struct {
	attempt *exam.Attempt
	stop    context.CancelFunc
}

// registry holds the sessions the server is running. Each session has a
// timer goroutine that submits it on expiry. Finished sessions are kept
// for the retention period so clients can read the result again.
type registry struct {
	mu        sync.Mutex
	sessions  map[string]*liveSession
	retention time.Duration
	logger    *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRegistry(retention time.Duration, logger *slog.Logger) *registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &registry{
		sessions:  make(map[string]*liveSession),
		retention: retention,
		logger:    logger,
		base:      ctx,
		cancel:    cancel,
	}
}

func (r *registry) add(a *exam.Attempt) {
	ctx, stop := context.WithCancel(r.base)
	r.mu.Lock()
	r.sessions[a.ID] = &liveSession{attempt: a, stop: stop}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		a.RunTimer(ctx)
		if _, done := a.Outcome(); done {
			r.forgetLater(a.ID)
		}
	}()
}

// get returns the session if it exists and belongs to studentID. Another
// student's session is reported as missing.
func (r *registry) get(id, studentID string) (*exam.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.attempt.Student.StudentID != studentID {
		return nil, errSessionNotFound
	}
	return s.attempt, nil
}

// stopTimer ends the timer goroutine of a submitted session.
func (r *registry) stopTimer(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.stop()
	}
}

func (r *registry) forgetLater(id string) {
	if r.retention <= 0 {
		r.forget(id)
		return
	}
	time.AfterFunc(r.retention, func() { r.forget(id) })
}

func (r *registry) forget(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) close() {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.attempt.Abandon() {
			r.logger.Info("session abandoned on shutdown", "session", id)
		}
		delete(r.sessions, id)
	}
}
