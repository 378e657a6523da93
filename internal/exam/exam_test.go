package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/events"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/questionbank"
)

var alice = identity.Identity{StudentID: "alice", DisplayName: "Alice"}

type fixture struct {
	store     *docstore.Memory
	agg       *analytics.Aggregator
	publisher *events.Recorder
	svc       *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()

	qs := []question.Question{
		{ID: "q1", Text: "pick", TopicID: "t1", Access: question.AccessFree,
			Body: question.MultipleChoice{Options: []string{"A", "B", "C", "D"}, Correct: "B"}},
		{ID: "q2", Text: "type", TopicID: "t1", Access: question.AccessFree,
			Body: question.Numerical{Correct: 42}},
	}
	for _, q := range qs {
		require.NoError(t, store.Put(ctx, question.Collection, q.Document()))
	}

	f := &fixture{
		store:     store,
		agg:       analytics.NewAggregator(store),
		publisher: &events.Recorder{},
	}
	bank := questionbank.New(store, questionbank.WithShuffler(func(int, func(i, j int)) {}))
	ids := 0
	all := append([]Option{
		WithPublisher(f.publisher),
		WithIDGenerator(func() string { ids++; return "attempt-" + string(rune('0'+ids)) }),
	}, opts...)
	f.svc = NewService(bank, f.agg, all...)
	return f
}

func (f *fixture) start(t *testing.T) *Attempt {
	t.Helper()
	a, err := f.svc.Start(context.Background(), alice, Config{
		TestID:   "test1",
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 2}}},
	})
	require.NoError(t, err)
	return a
}

func answer(t *testing.T, a *Attempt, byID map[string]string) {
	t.Helper()
	snap := a.Session.Snapshot()
	for i, q := range snap.Questions {
		require.NoError(t, a.Session.SelectQuestion(i))
		if v, ok := byID[q.ID]; ok {
			require.NoError(t, a.Session.AnswerChange(v))
		}
	}
}

func TestStart_NoQuestions(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), alice, Config{
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "missing", Count: 3}}},
	})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestStart_RequiresStudent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), identity.Identity{}, Config{})
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestStart_DerivesTestIDFromCriteria(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Start(context.Background(), alice, Config{
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 1}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "practice:topics=t1%3A1", a.TestID)
}

func TestSubmit_ScoresRecordsAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.start(t)
	answer(t, a, map[string]string{"q1": "B", "q2": "42.0"})

	out, first, err := a.Submit(ctx, TriggerManual)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 8.0, out.Result.Score)
	assert.Equal(t, 2, out.Result.Correct)
	assert.True(t, out.Recorded)

	ta, err := f.agg.Get(ctx, "test1")
	require.NoError(t, err)
	require.NotNil(t, ta)
	assert.Equal(t, 1, ta.NumberOfAttempts)
	assert.Equal(t, "Alice", ta.TopperStudentName)

	stored, err := f.agg.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, map[string]string{"q1": "B", "q2": "42"}, stored.Key)

	evs := f.publisher.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.AttemptRecorded, evs[0].Type)
	assert.Equal(t, a.ID, evs[0].AttemptID)
}

func TestSubmit_ManualAndTimerRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.start(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	for i := range 10 {
		trigger := TriggerManual
		if i%2 == 0 {
			trigger = TriggerTimer
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, first, err := a.Submit(ctx, trigger)
			assert.NoError(t, err)
			if first {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
	ta, err := f.agg.Get(ctx, "test1")
	require.NoError(t, err)
	assert.Equal(t, 1, ta.NumberOfAttempts)
	assert.Len(t, f.publisher.Events(), 1)
}

func TestSubmit_SecondCallReturnsFirstOutcome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.start(t)
	answer(t, a, map[string]string{"q1": "A"})

	first, ok, err := a.Submit(ctx, TriggerManual)
	require.NoError(t, err)
	require.True(t, ok)

	again, ok, err := a.Submit(ctx, TriggerTimer)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, first, again)
	assert.Equal(t, -1.0, again.Result.Score)
}

func TestSubmit_FinalisesCurrentQuestion(t *testing.T) {
	f := newFixture(t)
	a := f.start(t)

	_, _, err := a.Submit(context.Background(), TriggerManual)
	require.NoError(t, err)

	at, err := f.agg.GetAttempt(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, at)
	first := a.Session.Snapshot().Questions[0].ID
	assert.Equal(t, "notAnswered", at.Statuses[first])
}

type failingRecorder struct{}

func (failingRecorder) RecordAttempt(context.Context, analytics.Submission) error {
	return analytics.ErrAggregateLost
}

type captureQueue struct {
	mu   sync.Mutex
	subs []analytics.Submission
	err  error
}

func (q *captureQueue) Enqueue(s analytics.Submission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.subs = append(q.subs, s)
	return nil
}

func TestSubmit_LostAggregateIsQueued(t *testing.T) {
	f := newFixture(t)
	queue := &captureQueue{}
	bank := questionbank.New(f.store)
	svc := NewService(bank, failingRecorder{}, WithQueue(queue), WithPublisher(f.publisher))

	a, err := svc.Start(context.Background(), alice, Config{
		TestID:   "test1",
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 2}}},
	})
	require.NoError(t, err)

	out, first, err := a.Submit(context.Background(), TriggerManual)
	require.NoError(t, err, "analytics loss must not fail the submission")
	assert.True(t, first)
	assert.False(t, out.Recorded)
	assert.True(t, out.AggregateQueued)

	require.Len(t, queue.subs, 1)
	assert.Equal(t, a.ID, queue.subs[0].AttemptID)

	evs := f.publisher.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.AttemptAggregateLost, evs[0].Type)
	assert.NotEmpty(t, evs[0].Error)
}

func TestSubmit_FullQueueStillReturnsScore(t *testing.T) {
	f := newFixture(t)
	queue := &captureQueue{err: errors.New("full")}
	svc := NewService(questionbank.New(f.store), failingRecorder{}, WithQueue(queue))

	a, err := svc.Start(context.Background(), alice, Config{
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 2}}},
	})
	require.NoError(t, err)

	out, _, err := a.Submit(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, out.AggregateQueued)
	assert.Equal(t, 0.0, out.Result.Score)
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	a := f.start(t)

	assert.True(t, a.Abandon())
	assert.False(t, a.Abandon())

	_, first, err := a.Submit(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, first)

	ta, err := f.agg.Get(context.Background(), "test1")
	require.NoError(t, err)
	assert.Nil(t, ta)
}

func TestRunTimer_SubmitsOnExpiry(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Start(context.Background(), alice, Config{
		TestID:   "test1",
		Criteria: criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 2}}},
		Duration: time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.RunTimer(ctx)

	out, ok := a.Outcome()
	require.True(t, ok, "timer did not submit")
	assert.Equal(t, TriggerTimer, out.Trigger)
	assert.Equal(t, 1.0/60, out.TimeTakenMinutes)
}
