package llm

import (
	"log"
	"strings"

	"github.com/TobiSchelling/joseph/internal/config"
)

// NewProvider creates a single provider by name. Unknown names return nil.
func NewProvider(name string, cfg config.LLM) Provider {
	timeout := cfg.Timeout()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI.Model, cfg.OpenAI.APIKeyEnv, cfg.OpenAI.BaseURL, timeout)
	case "gemini", "google":
		return NewGeminiProvider(cfg.Gemini.Model, cfg.Gemini.APIKeyEnv, cfg.Gemini.BaseURL, timeout)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic.Model, cfg.Anthropic.APIKeyEnv, cfg.Anthropic.BaseURL, timeout)
	case "ollama":
		return NewOllamaProvider(cfg.Ollama.Model, cfg.Ollama.URL, timeout)
	case "backend":
		return NewBackendProvider(cfg.BackendURL(), timeout)
	default:
		log.Printf("Unknown LLM provider %q in chain, skipping", name)
		return nil
	}
}

// CreateOrchestrator builds the provider chain in configured order.
func CreateOrchestrator(cfg config.LLM) *Orchestrator {
	var providers []Provider
	for _, name := range cfg.Chain {
		if p := NewProvider(name, cfg); p != nil {
			providers = append(providers, p)
		}
	}

	o := NewOrchestrator(providers...)
	if configured := o.Configured(); len(configured) > 0 {
		log.Printf("LLM providers available: %s", strings.Join(configured, ", "))
	} else {
		log.Println("No LLM provider configured. Set OPENAI_API_KEY, GEMINI_API_KEY or CHATBOT_BACKEND_URL.")
	}
	return o
}
