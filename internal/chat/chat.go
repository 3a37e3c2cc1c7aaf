package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/TobiSchelling/joseph/internal/database"
	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/llm"
)

const (
	// FallbackReply is stored when no provider produced a chat reply.
	FallbackReply = "Sorry, I couldn’t reach the AI right now. Please try again in a moment."
	// ReportFallbackReply is the equivalent for a report's follow-up chat.
	ReportFallbackReply = "Sorry, I couldn't reach the AI. Please try again."

	maxExplainData = 6000
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrUnknownContext = errors.New("unknown chat context")
)

// Store persists conversations.
type Store interface {
	AppendMessage(conversation string, m llm.Message) error
	GetMessages(conversation string) ([]llm.Message, error)
	ClearMessages(conversation string) (int64, error)
}

// WebContext builds supplementary context from URLs found in a message.
type WebContext interface {
	BuildWebContext(ctx context.Context, message string) (string, bool)
}

// Assistant is the module-scoped chat assistant.
type Assistant struct {
	responder llm.Responder
	store     Store
	web       WebContext
}

// NewAssistant creates an assistant. web may be nil to disable URL fetching.
func NewAssistant(r llm.Responder, store Store, web WebContext) *Assistant {
	return &Assistant{responder: r, store: store, web: web}
}

func newMessage(role llm.Role, content, contextID string) llm.Message {
	return llm.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Context:   contextID,
	}
}

// Send records a user message in a module conversation, asks the provider
// chain for a reply and records that reply. When no provider answers, the
// fallback text is used.
func (a *Assistant) Send(ctx context.Context, contextID, text string) (llm.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return llm.Message{}, ErrEmptyMessage
	}
	mc, ok := Lookup(contextID)
	if !ok {
		return llm.Message{}, fmt.Errorf("%w: %s", ErrUnknownContext, contextID)
	}
	conv := database.ContextConversation(mc.ID)

	user := newMessage(llm.RoleUser, text, mc.ID)
	if err := a.store.AppendMessage(conv, user); err != nil {
		return llm.Message{}, err
	}
	history := a.history(conv, user)

	opts := llm.Options{
		System: fmt.Sprintf(`You are Joseph AI, an in-app economic and business assistant. The current module is "%s" (%s). `+
			`Use provided web context when present. Provide clear, accurate, concise answers with explanations grounded in the user's question and module.`,
			mc.Name, mc.ID),
		ContextID: mc.ID,
	}
	if a.web != nil {
		if wc, ok := a.web.BuildWebContext(ctx, text); ok {
			opts.WebContext = wc
		}
	}

	content, ok := a.responder.GenerateResponse(ctx, history, opts)
	if !ok {
		content = FallbackReply
	}

	reply := newMessage(llm.RoleAssistant, content, mc.ID)
	if err := a.store.AppendMessage(conv, reply); err != nil {
		return llm.Message{}, err
	}
	return reply, nil
}

// Switch returns a module's conversation, seeding a welcome message the
// first time the module is opened.
func (a *Assistant) Switch(contextID string) ([]llm.Message, error) {
	mc, ok := Lookup(contextID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, contextID)
	}
	conv := database.ContextConversation(mc.ID)

	msgs, err := a.store.GetMessages(conv)
	if err != nil {
		log.Printf("Error loading %s history: %v", mc.ID, err)
		msgs = nil
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	welcome := newMessage(llm.RoleAssistant,
		fmt.Sprintf("Welcome to %s! I can help you with %s. What questions do you have?", mc.Name, strings.ToLower(mc.Description)),
		mc.ID)
	if err := a.store.AppendMessage(conv, welcome); err != nil {
		return nil, err
	}
	return []llm.Message{welcome}, nil
}

// Clear wipes a module's conversation and leaves a fresh greeting.
func (a *Assistant) Clear(contextID string) (llm.Message, error) {
	mc, ok := Lookup(contextID)
	if !ok {
		return llm.Message{}, fmt.Errorf("%w: %s", ErrUnknownContext, contextID)
	}
	conv := database.ContextConversation(mc.ID)

	if _, err := a.store.ClearMessages(conv); err != nil {
		return llm.Message{}, err
	}
	greeting := newMessage(llm.RoleAssistant,
		fmt.Sprintf("Hi! I'm Joseph, your AI economic assistant. I'm currently in %s mode. How can I help you today?", mc.Name),
		mc.ID)
	if err := a.store.AppendMessage(conv, greeting); err != nil {
		return llm.Message{}, err
	}
	return greeting, nil
}

// Explain asks for an explanation of a dashboard element. data, when not
// nil, is sent as JSON in the web-context slot. Only the assistant's
// answer is recorded in the conversation.
func (a *Assistant) Explain(ctx context.Context, contextID, description string, data any) (llm.Message, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return llm.Message{}, ErrEmptyMessage
	}
	mc, ok := Lookup(contextID)
	if !ok {
		return llm.Message{}, fmt.Errorf("%w: %s", ErrUnknownContext, contextID)
	}
	conv := database.ContextConversation(mc.ID)

	prompt := newMessage(llm.RoleUser,
		fmt.Sprintf("Explain this UI element: %s. If helpful, relate it to %s.", description, mc.Name),
		mc.ID)
	history := a.history(conv, prompt)

	opts := llm.Options{
		System: fmt.Sprintf(`You are Joseph AI embedded in a web app. The user clicked an element described as: "%s". `+
			`Provide a concise explanation relevant to the current module (%s). If numbers or metrics are present in data, interpret them, cite the values you used. Avoid hallucinations.`,
			description, mc.Name),
		ContextID: mc.ID,
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			opts.WebContext = "Clicked element details (JSON):\n" + truncate(string(raw), maxExplainData)
		}
	}

	content, ok := a.responder.GenerateResponse(ctx, history, opts)
	if !ok {
		content = fmt.Sprintf("You clicked on %q. In %s this relates to %s. Ask a follow-up question and I'll go into more detail.",
			description, mc.Name, strings.ToLower(mc.Description))
	}

	reply := newMessage(llm.RoleAssistant, content, mc.ID)
	if err := a.store.AppendMessage(conv, reply); err != nil {
		return llm.Message{}, err
	}
	return reply, nil
}

// SendReportChat continues the follow-up conversation attached to a report.
func (a *Assistant) SendReportChat(ctx context.Context, report feasibility.Report, text string) (llm.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return llm.Message{}, ErrEmptyMessage
	}
	const contextID = "business-feasibility"
	conv := database.ReportConversation(report.ID)

	user := newMessage(llm.RoleUser, text, contextID)
	if err := a.store.AppendMessage(conv, user); err != nil {
		return llm.Message{}, err
	}
	history := a.history(conv, user)

	opts := llm.Options{
		System: fmt.Sprintf(`You are Joseph AI. Business Feasibility conversation for idea: "%s". `+
			`Provide clear, bold, practical analysis with metrics and next steps. Prefer concise bullets. Use green/yellow/red language for feasibility and risks.`,
			report.Idea),
		ContextID: contextID,
	}

	content, ok := a.responder.GenerateResponse(ctx, history, opts)
	if !ok {
		content = ReportFallbackReply
	}

	reply := newMessage(llm.RoleAssistant, content, contextID)
	if err := a.store.AppendMessage(conv, reply); err != nil {
		return llm.Message{}, err
	}
	return reply, nil
}

// ReportHistory returns a report's follow-up conversation.
func (a *Assistant) ReportHistory(reportID string) []llm.Message {
	msgs, err := a.store.GetMessages(database.ReportConversation(reportID))
	if err != nil {
		log.Printf("Error loading chat for %s: %v", reportID, err)
		return []llm.Message{}
	}
	return msgs
}

// history loads a conversation for a request. last is appended when it is
// not already the final stored message. Read failures degrade to just last.
func (a *Assistant) history(conv string, last llm.Message) []llm.Message {
	msgs, err := a.store.GetMessages(conv)
	if err != nil {
		log.Printf("Error loading history for %s: %v", conv, err)
		return []llm.Message{last}
	}
	if n := len(msgs); n == 0 || msgs[n-1].ID != last.ID {
		msgs = append(msgs, last)
	}
	return msgs
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
