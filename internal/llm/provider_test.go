package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	for _, want := range []string{`{"a":1}`, `{"b":2}`} {
		resp, err := mock.Generate(context.Background(), Request{System: "sys"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Content) != want {
			t.Fatalf("content = %s, want %s", resp.Content, want)
		}
	}

	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("empty queue: got %T, want ErrProviderUnavailable", err)
	}
	if len(mock.Calls()) != 3 || mock.Calls()[0].System != "sys" {
		t.Fatalf("calls not recorded: %+v", mock.Calls())
	}
}

func TestMockProvider_FallbackAndSchema(t *testing.T) {
	schema := &Schema{Name: "pair", Definition: map[string]any{
		"type":     "object",
		"required": []any{"a"},
	}}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"b":1}`)}).
		WithFallback(MockResponse{Content: json.RawMessage(`{"a":2}`)})

	_, err := mock.Generate(context.Background(), Request{Schema: schema})
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("queued reply off schema: got %v, want ErrInvalidResponse", err)
	}
	for range 2 {
		resp, err := mock.Generate(context.Background(), Request{Schema: schema})
		if err != nil || string(resp.Content) != `{"a":2}` {
			t.Fatalf("fallback: got %v, %v", resp, err)
		}
	}
}

func TestCallContext(t *testing.T) {
	ctx := context.Background()
	if c := CallFrom(ctx); c.Purpose != "unknown" || c.QuestionID != "" {
		t.Fatalf("unlabelled context: got %+v", c)
	}
	c := CallFrom(WithCall(ctx, Call{Purpose: "explain", QuestionID: "q1"}))
	if c.Purpose != "explain" || c.QuestionID != "q1" {
		t.Fatalf("got %+v", c)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"mock reply must be JSON", Config{Provider: ProviderMock, MockReply: "{"}, true},
		{"unknown provider", Config{Provider: "openrouter"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_DiscoversProvider(t *testing.T) {
	t.Setenv("EXAMPREP_LLM_PROVIDER", "")
	t.Setenv("EXAMPREP_ANTHROPIC_API_KEY", "")
	t.Setenv("EXAMPREP_OPENAI_API_KEY", "sk-test")
	t.Setenv("EXAMPREP_OPENAI_MODEL", "gpt-4o")
	t.Setenv("EXAMPREP_LLM_TIMEOUT", "5s")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI {
		t.Fatalf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.OpenAI.Model != "gpt-4o" || cfg.Timeout.String() != "5s" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.Enabled() {
		t.Fatal("expected enabled")
	}
}

func TestConfigFromEnv_DisabledWithoutKeys(t *testing.T) {
	for _, k := range []string{"EXAMPREP_LLM_PROVIDER", "EXAMPREP_ANTHROPIC_API_KEY", "EXAMPREP_OPENAI_API_KEY", "EXAMPREP_GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	if cfg := ConfigFromEnv(); cfg.Enabled() {
		t.Fatalf("expected disabled, got provider %q", cfg.Provider)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig(), nil)
	if err != nil || p != nil {
		t.Fatalf("disabled config: got %v, %v", p, err)
	}

	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err = NewProvider(context.Background(), cfg, nil)
	if err != nil || p.ModelID() != "mock" {
		t.Fatalf("mock config: got %v, %v", p, err)
	}

	cfg.Provider = ProviderAnthropic
	if _, err := NewProvider(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected missing key error")
	}

	cfg.Anthropic.APIKey = "sk-test"
	p, err = NewProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("anthropic config: %v", err)
	}
	if p.ModelID() != "claude-haiku-4-5-20251001" {
		t.Fatalf("ModelID = %q", p.ModelID())
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"x":1}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	p := WithLogging(mock, ProviderMock, logger)
	ctx := WithCall(context.Background(), Call{Purpose: "explain", QuestionID: "q7"})

	if _, err := p.Generate(ctx, Request{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error to pass through")
	}

	out := buf.String()
	for _, want := range []string{"purpose=explain", "question=q7", "input_tokens=7", "llm request failed", `response="{\"x\":1}"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := map[string]error{
		"rate_limited":     &ErrRateLimit{},
		"invalid_response": &ErrInvalidResponse{Err: errors.New("x")},
		"unavailable":      &ErrProviderUnavailable{},
		"max_tokens":       &ErrMaxTokensExceeded{},
		"timeout":          context.DeadlineExceeded,
		"error":            errors.New("boom"),
	}
	for want, err := range tests {
		if got := errorKind(err); got != want {
			t.Errorf("errorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
