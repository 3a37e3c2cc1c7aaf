package llm

import (
	"testing"

	"github.com/TobiSchelling/joseph/internal/config"
)

func testLLMConfig() config.LLM {
	cfg := config.Default().LLM
	cfg.Chain = []string{"ollama", "unknown", "backend", "OpenAI"}
	return cfg
}

func TestNewProviderByName(t *testing.T) {
	cfg := config.Default().LLM
	for _, name := range []string{"openai", "gemini", "google", "anthropic", "ollama", "backend"} {
		if NewProvider(name, cfg) == nil {
			t.Errorf("expected provider for %q", name)
		}
	}
	if NewProvider("mystery", cfg) != nil {
		t.Error("expected nil for unknown provider")
	}
}

func TestBackendProviderFromEnv(t *testing.T) {
	t.Setenv("CHATBOT_BACKEND_URL", "http://localhost:9999")
	p := NewProvider("backend", config.Default().LLM)
	if p == nil || !p.IsConfigured() {
		t.Error("expected backend configured from environment")
	}
}
