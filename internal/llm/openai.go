package llm

import (
	"context"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the OpenAI Chat Completions API. The system
// instruction is sent as an inline system turn.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI provider reading its key from apiKeyEnv.
func NewOpenAIProvider(model, apiKeyEnv, baseURL string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Attempt sends the conversation to OpenAI and returns the first choice.
func (o *OpenAIProvider) Attempt(ctx context.Context, history []Message, opts Options) (string, error) {
	if !o.IsConfigured() {
		return "", errNotConfigured
	}

	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	cfg.HTTPClient = o.client
	client := openai.NewClientWithConfig(cfg)

	model := opts.Model
	if model == "" {
		model = o.Model
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(history, SystemPrompt(opts)),
		Temperature: float32(opts.Temp()),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(history []Message, system string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}
