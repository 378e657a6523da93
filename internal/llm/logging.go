package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/metrics"
)

// LoggingProvider logs every request and records it in the LLM metrics.
// Prompts and completions are logged at debug level only.
type LoggingProvider struct {
	inner    Provider
	provider string
	logger   *slog.Logger
}

// WithLogging wraps p. provider is the metric label, e.g. "anthropic".
func WithLogging(p Provider, provider string, logger *slog.Logger) Provider {
	return &LoggingProvider{inner: p, provider: provider, logger: logging.OrDiscard(logger)}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	call := CallFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = errorKind(err)
	}
	metrics.LLMRequests.WithLabelValues(l.provider, call.Purpose, outcome).Inc()
	metrics.LLMDuration.WithLabelValues(l.provider).Observe(elapsed.Seconds())

	attrs := []any{
		"provider", l.provider,
		"model", l.inner.ModelID(),
		"purpose", call.Purpose,
		"latency_ms", elapsed.Milliseconds(),
	}
	if call.QuestionID != "" {
		attrs = append(attrs, "question", call.QuestionID)
	}
	if resp != nil {
		metrics.LLMTokens.WithLabelValues(l.provider, "input").Add(float64(resp.Usage.InputTokens))
		metrics.LLMTokens.WithLabelValues(l.provider, "output").Add(float64(resp.Usage.OutputTokens))
		attrs = append(attrs, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	}

	if err != nil {
		l.logger.Warn("llm request failed", append(attrs, "err", err)...)
		return nil, err
	}
	l.logger.Info("llm request", attrs...)
	if l.logger.Enabled(ctx, slog.LevelDebug) {
		l.logger.Debug("llm exchange", "system", req.System, "messages", len(req.Messages),
			"response", string(resp.Content))
	}
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
