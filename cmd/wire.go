package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/examprep/internal/analytics"
	"github.com/abhisek/examprep/internal/config"
	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/events"
	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/llm"
	"github.com/abhisek/examprep/internal/questionbank"
	"github.com/abhisek/examprep/internal/store"
)

const (
	nameCacheTTL = 10 * time.Minute
	drainTimeout = 10 * time.Second
)

// services is everything a command may need, built from one Config.
type services struct {
	cfg       config.Config
	logger    *slog.Logger
	store     docstore.Store
	bank      *questionbank.Bank
	analytics *analytics.Aggregator
	queue     *analytics.RetryQueue
	publisher events.Publisher
	exam      *exam.Service

	// explainer is nil when no model provider is configured.
	explainer *explain.Service

	cancel  context.CancelFunc
	closers []func()
}

// open connects the store and the optional backends. Redis, RabbitMQ and
// the model provider are each skipped, with a warning, when they are not
// configured or cannot be reached.
func open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	st, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &services{cfg: cfg, logger: logger, store: st}
	s.closers = append(s.closers, func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("close store", "err", err)
		}
	})

	bankOpts := []questionbank.Option{questionbank.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, name cache disabled", "addr", cfg.Redis.Addr, "err", err)
			rdb.Close()
		} else {
			bankOpts = append(bankOpts, questionbank.WithNameCache(questionbank.NewRedisNameCache(rdb, nameCacheTTL)))
			s.closers = append(s.closers, func() { rdb.Close() })
		}
	}
	s.bank = questionbank.New(st, bankOpts...)
	s.analytics = analytics.NewAggregator(st, analytics.WithLogger(logger))

	s.publisher = events.Nop{}
	if cfg.RabbitMQ.URI != "" {
		pub, err := events.NewRabbitPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, attempt events disabled", "err", err)
		} else {
			s.publisher = pub
			s.closers = append(s.closers, func() { pub.Close() })
		}
	}

	qctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.queue = analytics.NewRetryQueue(s.analytics, analytics.ReplayPolicy(), logger)
	s.queue.OnGiveUp(func(sub analytics.Submission, err error) {
		ev := events.AttemptEvent{
			Type:      events.AttemptAggregateLost,
			AttemptID: sub.AttemptID,
			TestID:    sub.TestID,
			StudentID: sub.Student.StudentID,
			Score:     sub.Score,
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		}
		if perr := s.publisher.Publish(context.Background(), ev); perr != nil {
			logger.Warn("publish dropped replay", "attempt", sub.AttemptID, "err", perr)
		}
	})
	s.queue.Start(qctx)

	s.exam = exam.NewService(s.bank, s.analytics,
		exam.WithQueue(s.queue),
		exam.WithPublisher(s.publisher),
		exam.WithScheme(cfg.Scheme),
		exam.WithLogger(logger),
	)

	provider, err := llm.NewProvider(ctx, cfg.LLM, logger)
	switch {
	case err != nil:
		logger.Warn("model provider not configured, explanations disabled", "err", err)
	case provider != nil:
		s.explainer = explain.New(provider, st, s.bank, s.analytics, explain.WithLogger(logger))
	}
	return s, nil
}

// Close drains the replay queue, giving up after drainTimeout, and
// releases connections, newest first.
func (s *services) Close() {
	done := make(chan struct{})
	go func() {
		s.queue.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		s.logger.Warn("replay queue not drained before exit")
		s.cancel()
		<-done
	}
	s.cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
