package llm

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the official genai client.
// The system instruction travels in its own field and assistant turns use
// the "model" role.
type GeminiProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewGeminiProvider creates a Gemini provider reading its key from apiKeyEnv.
func NewGeminiProvider(model, apiKeyEnv, baseURL string, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

// Attempt sends the conversation to Gemini and concatenates the text parts
// of the first candidate.
func (g *GeminiProvider) Attempt(ctx context.Context, history []Message, opts Options) (string, error) {
	if !g.IsConfigured() {
		return "", errNotConfigured
	}

	cc := &genai.ClientConfig{
		APIKey:     g.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.client,
	}
	if g.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", err
	}

	model := opts.Model
	if model == "" {
		model = g.Model
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temp())),
	}
	if system := SystemPrompt(opts); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := cli.Models.GenerateContent(ctx, model, toGeminiContents(history), cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoChoices
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func toGeminiContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := string(genai.RoleModel)
		if m.Role == RoleUser {
			role = string(genai.RoleUser)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}
