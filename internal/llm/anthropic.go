package llm

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewAnthropicProvider creates an Anthropic provider reading its key from apiKeyEnv.
func NewAnthropicProvider(model, apiKeyEnv, baseURL string, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

// IsConfigured checks if the API key is set.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.APIKey != ""
}

// Attempt sends the conversation to Anthropic and joins the text blocks of
// the reply.
func (a *AnthropicProvider) Attempt(ctx context.Context, history []Message, opts Options) (string, error) {
	if !a.IsConfigured() {
		return "", errNotConfigured
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(a.APIKey),
		option.WithHTTPClient(a.client),
		option.WithMaxRetries(0),
	}
	if a.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(a.BaseURL))
	}
	client := anthropic.NewClient(reqOpts...)

	model := opts.Model
	if model == "" {
		model = a.Model
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    toAnthropicMessages(history),
		Temperature: anthropic.Float(opts.Temp()),
	}
	if system := SystemPrompt(opts); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// toAnthropicMessages maps history to Anthropic turns. The API requires the
// first turn to come from the user, so leading assistant greetings are dropped.
func toAnthropicMessages(history []Message) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Role != RoleUser && len(msgs) == 0 {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleUser {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		}
	}
	return msgs
}
