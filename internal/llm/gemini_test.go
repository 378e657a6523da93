package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelAliases(t *testing.T) {
	tests := map[string]string{
		"gemini-flash":     "gemini-2.5-flash",
		"gemini-pro":       "gemini-2.5-pro",
		"gemini-2.0-flash": "gemini-2.0-flash",
	}
	for in, want := range tests {
		if got := resolveModel(in, geminiModels); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(explanationSchema().Definition)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %s, want OBJECT", s.Type)
	}
	if len(s.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(s.Properties))
	}
	if s.Properties["steps"].Type != genai.TypeArray || s.Properties["steps"].Items.Type != genai.TypeString {
		t.Fatalf("steps = %+v", s.Properties["steps"])
	}
	if got := s.Properties["confidence"].Enum; len(got) != 3 || got[2] != "high" {
		t.Fatalf("confidence enum = %v", got)
	}
	if len(s.Required) != 1 || s.Required[0] != "explanation" {
		t.Fatalf("required = %v", s.Required)
	}
	if geminiSchema(map[string]any{"type": "null"}).Type != genai.TypeString {
		t.Fatal("unknown types should fall back to STRING")
	}
}
