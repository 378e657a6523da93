// Package explain asks the configured model to explain the questions a
// student got wrong, and caches the answers in the document store.
package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/llm"
	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/question"
	"github.com/abhisek/examprep/internal/scoring"
)

// Collection caches generated explanations.
const Collection = "explanations"

var (
	ErrDisabled        = errors.New("explanations are not configured")
	ErrAttemptNotFound = errors.New("attempt not found")
)

// Config tunes generation.
type Config struct {
	MaxTokens   int
	Temperature float64

	// Concurrency bounds parallel model calls for one attempt.
	Concurrency int
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 600, Temperature: 0.3, Concurrency: 3}
}

// Explanation is the review text for one incorrectly answered question.
type Explanation struct {
	QuestionID    string   `json:"questionId"`
	Given         string   `json:"answer"`
	Correct       string   `json:"correctAnswer"`
	Text          string   `json:"explanation"`
	Steps         []string `json:"steps"`
	Misconception string   `json:"misconception"`
	Model         string   `json:"model"`

	// Error is set when this one explanation could not be generated.
	Error string `json:"error,omitempty"`
}

// Questions loads questions by id.
type Questions interface {
	Get(ctx context.Context, id string) (question.Question, error)
}

// Attempts loads stored attempts.
type Attempts interface {
	GetAttempt(ctx context.Context, attemptID string) (*analytics.Attempt, error)
}

// Service generates explanations.
type Service struct {
	provider  llm.Provider
	store     docstore.Store
	questions Questions
	attempts  Attempts
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option { return func(s *Service) { s.cfg = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// New returns a Service. A nil provider yields a Service whose calls
// return ErrDisabled; a nil store disables caching.
func New(provider llm.Provider, store docstore.Store, questions Questions, attempts Attempts, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		store:     store,
		questions: questions,
		attempts:  attempts,
		cfg:       DefaultConfig(),
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.Concurrency < 1 {
		s.cfg.Concurrency = 1
	}
	return s
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

type output struct {
	Explanation   string   `json:"explanation"`
	Steps         []string `json:"steps"`
	Misconception string   `json:"misconception"`
}

// Explain returns the explanation for answering q with given, from the
// cache when this exact answer was explained before.
func (s *Service) Explain(ctx context.Context, q question.Question, given string) (Explanation, error) {
	if !s.Enabled() {
		return Explanation{}, ErrDisabled
	}

	key := cacheKey(q.ID, given)
	if e, ok := s.cached(ctx, key); ok {
		return e, nil
	}

	resp, err := s.provider.Generate(llm.WithCall(ctx, llm.Call{Purpose: "explain", QuestionID: q.ID}), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(q, given)}},
		Schema:      Schema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Explanation{}, fmt.Errorf("explain %s: %w", q.ID, err)
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Explanation{}, fmt.Errorf("parse explanation for %s: %w", q.ID, err)
	}

	e := Explanation{
		QuestionID:    q.ID,
		Given:         given,
		Correct:       q.CorrectAnswer(),
		Text:          out.Explanation,
		Steps:         out.Steps,
		Misconception: out.Misconception,
		Model:         resp.Model,
	}
	s.save(ctx, key, e)
	return e, nil
}

// ForAnswers explains every incorrect answer among qs, in question order.
// A failure on one question is reported on its entry and does not stop
// the others.
func (s *Service) ForAnswers(ctx context.Context, qs []question.Question, answers map[string]string) ([]Explanation, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	var wrong []question.Question
	for _, q := range qs {
		given, ok := answers[q.ID]
		if ok && given != "" && !scoring.IsCorrect(q, given) {
			wrong = append(wrong, q)
		}
	}

	out := make([]Explanation, len(wrong))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, q := range wrong {
		g.Go(func() error {
			given := answers[q.ID]
			e, err := s.Explain(gctx, q, given)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("explanation failed", "question", q.ID, "err", err)
				e = Explanation{QuestionID: q.ID, Given: given, Correct: q.CorrectAnswer(), Error: err.Error()}
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForAttempt explains a stored attempt. Only the student who took it may
// read it; anyone else gets ErrAttemptNotFound.
func (s *Service) ForAttempt(ctx context.Context, attemptID, studentID string) ([]Explanation, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	at, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if at == nil || at.StudentID != studentID {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}

	ids := make([]string, 0, len(at.Answers))
	for id := range at.Answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	qs := make([]question.Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.questions.Get(ctx, id)
		if err != nil {
			// Deleted since the attempt; nothing to explain against.
			s.logger.Warn("question for explanation unavailable", "attempt", attemptID, "question", id, "err", err)
			continue
		}
		if want, ok := at.Key[id]; ok && want != q.CorrectAnswer() {
			// Re-keyed since the attempt; an explanation would contradict
			// the recorded score.
			s.logger.Warn("question changed since attempt", "attempt", attemptID, "question", id)
			continue
		}
		qs = append(qs, q)
	}
	return s.ForAnswers(ctx, qs, at.Answers)
}

// cacheKey derives a stable document id from the question and answer.
func cacheKey(questionID, given string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(questionID+"\x00"+given)).String()
}

func (s *Service) cached(ctx context.Context, key string) (Explanation, bool) {
	if s.store == nil {
		return Explanation{}, false
	}
	doc, err := s.store.Get(ctx, Collection, key)
	if err != nil || doc == nil {
		return Explanation{}, false
	}
	b, err := json.Marshal(doc.Data)
	if err != nil {
		return Explanation{}, false
	}
	var e Explanation
	if err := json.Unmarshal(b, &e); err != nil {
		return Explanation{}, false
	}
	return e, true
}

func (s *Service) save(ctx context.Context, key string, e Explanation) {
	if s.store == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return
	}
	data["createdAt"] = s.now().UTC().Format(time.RFC3339Nano)
	if err := s.store.Put(ctx, Collection, docstore.Document{ID: key, Data: data}); err != nil {
		s.logger.Warn("cache explanation", "question", e.QuestionID, "err", err)
	}
}
