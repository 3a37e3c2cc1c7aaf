package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const backendPath = "/chatbot/generate-response/"

// BackendProvider relays the conversation to the Joseph backend proxy,
// which holds its own model credentials.
type BackendProvider struct {
	BaseURL string
	client  *http.Client
}

// NewBackendProvider creates a backend proxy provider.
func NewBackendProvider(baseURL string, timeout time.Duration) *BackendProvider {
	return &BackendProvider{
		BaseURL: strings.TrimSpace(baseURL),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *BackendProvider) Name() string { return "backend" }

// IsConfigured requires an absolute http(s) base URL.
func (b *BackendProvider) IsConfigured() bool {
	lower := strings.ToLower(b.BaseURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

type backendMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type backendRequest struct {
	Messages    []backendMessage `json:"messages"`
	Context     string           `json:"context"`
	CurrentData map[string]any   `json:"currentData"`
	System      string           `json:"system,omitempty"`
}

// Attempt posts the history to the proxy and returns its "response" field.
func (b *BackendProvider) Attempt(ctx context.Context, history []Message, opts Options) (string, error) {
	if !b.IsConfigured() {
		return "", errNotConfigured
	}

	payload := backendRequest{
		Messages:    make([]backendMessage, 0, len(history)),
		Context:     opts.ContextID,
		CurrentData: map[string]any{},
		System:      SystemPrompt(opts),
	}
	for _, m := range history {
		payload.Messages = append(payload.Messages, backendMessage{Type: string(m.Role), Content: m.Content})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(b.BaseURL, "/") + backendPath
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: "backend", Code: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return result.Response, nil
}
