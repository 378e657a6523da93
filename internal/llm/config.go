package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/abhisek/examprep/internal/retry"
)

// Provider names accepted in Config.Provider.
const (
	ProviderNone      = ""
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config selects and configures the model used for answer explanations.
// An empty Provider disables explanations.
type Config struct {
	Provider string

	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Retry     retry.Policy

	// Timeout bounds one Generate call, retries included.
	Timeout time.Duration

	// MockReply is the JSON the mock provider answers every request with.
	MockReply string
}

// AnthropicConfig configures the Anthropic client.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIConfig configures the OpenAI client. BaseURL points it at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// DefaultConfig returns explanations disabled, with per-provider model
// defaults filled in for when a key is supplied.
func DefaultConfig() Config {
	return Config{
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry:     retry.DefaultPolicy(),
		Timeout:   30 * time.Second,
	}
}

// ConfigFromEnv reads EXAMPREP_LLM_* and the per-provider variables on top
// of DefaultConfig. When no provider is named, the first provider with an
// API key set is chosen.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set("EXAMPREP_LLM_PROVIDER", &cfg.Provider)
	set("EXAMPREP_ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey)
	set("EXAMPREP_ANTHROPIC_MODEL", &cfg.Anthropic.Model)
	set("EXAMPREP_ANTHROPIC_BASE_URL", &cfg.Anthropic.BaseURL)
	set("EXAMPREP_OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	set("EXAMPREP_OPENAI_MODEL", &cfg.OpenAI.Model)
	set("EXAMPREP_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	set("EXAMPREP_GEMINI_API_KEY", &cfg.Gemini.APIKey)
	set("EXAMPREP_GEMINI_MODEL", &cfg.Gemini.Model)
	set("EXAMPREP_LLM_MOCK_REPLY", &cfg.MockReply)
	if v := os.Getenv("EXAMPREP_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if cfg.Provider == ProviderNone {
		cfg.Provider = discover(cfg)
	}
	return cfg
}

// discover picks the first provider with an API key.
func discover(cfg Config) string {
	switch {
	case cfg.Anthropic.APIKey != "":
		return ProviderAnthropic
	case cfg.OpenAI.APIKey != "":
		return ProviderOpenAI
	case cfg.Gemini.APIKey != "":
		return ProviderGemini
	}
	return ProviderNone
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != ProviderNone
}

// Validate checks that the selected provider has its API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderNone:
		return nil
	case ProviderMock:
		if c.MockReply != "" && !json.Valid([]byte(c.MockReply)) {
			return fmt.Errorf("EXAMPREP_LLM_MOCK_REPLY is not valid JSON")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("EXAMPREP_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("EXAMPREP_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("EXAMPREP_GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
