package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// NewProvider builds the configured provider wrapped as
// caller → timeout → retry → logging → base. It returns nil, nil when
// explanations are disabled.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderMock:
		m := NewMockProvider()
		if cfg.MockReply != "" {
			m.WithFallback(MockResponse{Content: json.RawMessage(cfg.MockReply)})
		}
		return m, nil
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := WithRetry(WithLogging(base, cfg.Provider, logger), cfg.Retry)
	return WithTimeout(p, cfg.Timeout), nil
}
