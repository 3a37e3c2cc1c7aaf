package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured reports whether a base URL and model are set. Reachability
// is only discovered by Attempt.
func (o *OllamaProvider) IsConfigured() bool {
	return o.BaseURL != "" && o.Model != ""
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attempt sends the conversation to Ollama's chat endpoint.
func (o *OllamaProvider) Attempt(ctx context.Context, history []Message, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = o.Model
	}

	var messages []ollamaMessage
	if system := SystemPrompt(opts); system != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		role := "assistant"
		if m.Role == RoleUser {
			role = "user"
		}
		messages = append(messages, ollamaMessage{Role: role, Content: m.Content})
	}

	body := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": opts.Temp(),
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: "ollama", Code: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Message.Content, nil
}
