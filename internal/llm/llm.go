package llm

import (
	"context"
	"log"
	"strings"
	"time"
)

// DefaultTemperature is used when Options.Temperature is nil.
const DefaultTemperature = 0.3

const webContextLabel = "Relevant web context (summarized):\n"

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}

// Options tune a single generation request.
type Options struct {
	Model       string
	Temperature *float64
	System      string
	WebContext  string
	// ContextID names the dashboard module the conversation belongs to.
	ContextID string
}

// Temp returns the requested temperature or the default.
func (o Options) Temp() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

// Float returns a pointer to f, for Options.Temperature.
func Float(f float64) *float64 { return &f }

// SystemPrompt joins the system instruction and the labeled web context
// block with a blank line. Either part may be empty.
func SystemPrompt(opts Options) string {
	var parts []string
	if s := strings.TrimSpace(opts.System); s != "" {
		parts = append(parts, s)
	}
	if wc := strings.TrimSpace(opts.WebContext); wc != "" {
		parts = append(parts, webContextLabel+wc)
	}
	return strings.Join(parts, "\n\n")
}

// Provider is an external text-generation service.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// IsConfigured reports whether credentials are present. It must not
	// perform network I/O.
	IsConfigured() bool
	// Attempt makes a single request for a reply to history.
	Attempt(ctx context.Context, history []Message, opts Options) (string, error)
}

// Responder produces a reply for a conversation, or false when none is
// available.
type Responder interface {
	GenerateResponse(ctx context.Context, history []Message, opts Options) (string, bool)
}

// Orchestrator tries providers in order and returns the first non-empty reply.
type Orchestrator struct {
	providers []Provider
}

// NewOrchestrator creates an orchestrator over the given providers, in
// priority order. Nil providers are ignored.
func NewOrchestrator(providers ...Provider) *Orchestrator {
	o := &Orchestrator{}
	for _, p := range providers {
		if p != nil {
			o.providers = append(o.providers, p)
		}
	}
	return o
}

// Providers returns the chain in priority order.
func (o *Orchestrator) Providers() []Provider {
	return o.providers
}

// Configured returns the names of providers that have credentials.
func (o *Orchestrator) Configured() []string {
	var names []string
	for _, p := range o.providers {
		if p.IsConfigured() {
			names = append(names, p.Name())
		}
	}
	return names
}

// GenerateResponse walks the provider chain. Provider failures are logged
// and skipped; each provider is tried at most once. It returns false when
// no provider is configured or all of them failed.
func (o *Orchestrator) GenerateResponse(ctx context.Context, history []Message, opts Options) (string, bool) {
	if o == nil {
		return "", false
	}
	for _, p := range o.providers {
		if !p.IsConfigured() {
			continue
		}
		if ctx.Err() != nil {
			return "", false
		}

		text, err := attempt(ctx, p, history, opts)
		if err != nil {
			log.Printf("Provider %s failed: %v", p.Name(), err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			log.Printf("Provider %s returned an empty reply", p.Name())
			continue
		}
		return text, true
	}
	return "", false
}

func attempt(ctx context.Context, p Provider, history []Message, opts Options) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Provider %s panicked: %v", p.Name(), r)
			text, err = "", errPanicked
		}
	}()
	return p.Attempt(ctx, history, opts)
}
