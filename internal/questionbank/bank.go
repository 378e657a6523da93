// Package questionbank draws practice question sets from the document
// store and manages the question catalogue.
package questionbank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/metrics"
	"github.com/abhisek/examprep/internal/question"
)

// Shuffler permutes n elements through swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// Bank is the question repository.
type Bank struct {
	store   docstore.Store
	shuffle Shuffler
	names   NameCache
	logger  *slog.Logger
}

// Option configures a Bank.
type Option func(*Bank)

// WithShuffler replaces the random shuffle, for deterministic tests.
func WithShuffler(s Shuffler) Option {
	return func(b *Bank) { b.shuffle = s }
}

// WithNameCache caches subject and topic display names.
func WithNameCache(c NameCache) Option {
	return func(b *Bank) { b.names = c }
}

// WithLogger sets the logger for degraded fetches.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bank) { b.logger = l }
}

// New returns a Bank reading from store.
func New(store docstore.Store, opts ...Option) *Bank {
	b := &Bank{
		store:   store,
		shuffle: rand.Shuffle,
		names:   NopCache{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Report describes how a fetch went.
type Report struct {
	// Requested and Drawn count questions per topic.
	Requested map[string]int
	Drawn     map[string]int

	// Failed lists topics whose query errored and contributed nothing.
	Failed []string
}

// Degraded reports whether any topic query failed.
func (r Report) Degraded() bool { return len(r.Failed) > 0 }

// Fetch materialises a question set for c. See FetchWithReport.
func (b *Bank) Fetch(ctx context.Context, c criteria.Set) ([]question.Question, error) {
	qs, _, err := b.FetchWithReport(ctx, c)
	return qs, err
}

// FetchWithReport runs one query per topic pair, samples min(count,
// available) questions from each without replacement, and shuffles the
// combined set so topics interleave. A failed query for one pair yields
// zero questions for that pair and is recorded in the report; it does not
// fail the fetch. The only error returned is context cancellation.
func (b *Bank) FetchWithReport(ctx context.Context, c criteria.Set) ([]question.Question, Report, error) {
	report := Report{Requested: make(map[string]int), Drawn: make(map[string]int)}
	var out []question.Question

	for _, pair := range c.Pairs {
		if pair.Count <= 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		report.Requested[pair.TopicID] += pair.Count

		candidates, err := b.candidates(ctx, pair.TopicID, c)
		if err != nil {
			b.logger.Warn("topic fetch failed, continuing without it",
				"topic", pair.TopicID, "err", err)
			metrics.DegradedFetches.Inc()
			report.Failed = append(report.Failed, pair.TopicID)
			continue
		}

		sample := b.sample(candidates, pair.Count, out)
		report.Drawn[pair.TopicID] += len(sample)
		out = append(out, sample...)
	}

	b.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	if err := b.resolveNames(ctx, out); err != nil {
		b.logger.Warn("resolve display names", "err", err)
	}

	metrics.QuestionsServed.Add(float64(len(out)))
	return out, report, nil
}

func (b *Bank) candidates(ctx context.Context, topicID string, c criteria.Set) ([]question.Question, error) {
	filters := []docstore.Filter{docstore.Where(question.FieldTopicID, docstore.OpEq, topicID)}
	if c.Difficulty != "" {
		filters = append(filters, docstore.Where(question.FieldDifficulty, docstore.OpEq, c.Difficulty))
	}
	if c.Access != "" {
		filters = append(filters, docstore.Where(question.FieldAccess, docstore.OpEq, string(c.Access)))
	}

	docs, err := b.store.Query(ctx, question.Collection, docstore.Query{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("query topic %s: %w", topicID, err)
	}

	qs := make([]question.Question, 0, len(docs))
	for _, d := range docs {
		q, err := question.FromDocument(d)
		if err != nil {
			b.logger.Warn("skipping unreadable question", "id", d.ID, "err", err)
			continue
		}
		qs = append(qs, q)
	}
	return qs, nil
}

// sample shuffles candidates and keeps the first count distinct ones not
// already drawn.
func (b *Bank) sample(candidates []question.Question, count int, drawn []question.Question) []question.Question {
	b.shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	seen := make(map[string]bool, len(drawn)+count)
	for _, q := range drawn {
		seen[q.ID] = true
	}

	out := make([]question.Question, 0, min(count, len(candidates)))
	for _, q := range candidates {
		if len(out) == count {
			break
		}
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q.Clone())
	}
	return out
}

// resolveNames fills subject and topic display names with one bulk query
// per collection, consulting the name cache first. A topic name stored on
// the question document is kept.
func (b *Bank) resolveNames(ctx context.Context, qs []question.Question) error {
	var subjectIDs, topicIDs []string
	for _, q := range qs {
		if q.SubjectID != "" && !slices.Contains(subjectIDs, q.SubjectID) {
			subjectIDs = append(subjectIDs, q.SubjectID)
		}
		if q.TopicName == "" && q.TopicID != "" && !slices.Contains(topicIDs, q.TopicID) {
			topicIDs = append(topicIDs, q.TopicID)
		}
	}

	subjects, serr := loadNames(ctx, b.names, b.store, question.SubjectCollection, subjectIDs)
	topics, terr := loadNames(ctx, b.names, b.store, question.TopicCollection, topicIDs)
	for i := range qs {
		qs[i].SubjectName = subjects[qs[i].SubjectID]
		if qs[i].TopicName == "" {
			qs[i].TopicName = topics[qs[i].TopicID]
		}
	}
	return errors.Join(serr, terr)
}
