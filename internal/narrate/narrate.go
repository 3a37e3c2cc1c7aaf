package narrate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/llm"
)

// ContextID is the dashboard module narratives belong to.
const ContextID = "business-feasibility"

const narrativePrompt = `You are Joseph AI. Create a concise business feasibility narrative for the %s mode.
Idea: %q
Include: Risk, Time Value (NPV intuition), ROI Time, Length Time Factor, Interest Rate, and an overall verdict (%s) with score %d/100. Avoid fluff.`

// BuildNarrative asks the responder for a short narrative explaining one
// mode's result. It reports false when no reply was produced.
func BuildNarrative(ctx context.Context, r llm.Responder, idea string, mode feasibility.Mode, res feasibility.ModeResult) (string, bool) {
	if r == nil {
		return "", false
	}
	history := []llm.Message{{
		ID:        "u1",
		Role:      llm.RoleUser,
		Content:   idea,
		Timestamp: time.Now(),
		Context:   ContextID,
	}}
	opts := llm.Options{
		System:    fmt.Sprintf(narrativePrompt, mode, idea, res.Verdict, res.Score),
		ContextID: ContextID,
	}
	return r.GenerateResponse(ctx, history, opts)
}

// Store persists narratives as they arrive.
type Store interface {
	AttachNarrative(reportID string, mode feasibility.Mode, text string) (bool, error)
}

// Narrator generates the per-mode narratives of a report in the background.
type Narrator struct {
	responder llm.Responder
	store     Store
	timeout   time.Duration

	// OnAttach, if set, is called after each narrative is stored.
	OnAttach func(reportID string, mode feasibility.Mode, text string)
}

// NewNarrator creates a narrator. A zero timeout means each request is
// bounded only by ctx.
func NewNarrator(r llm.Responder, store Store, timeout time.Duration) *Narrator {
	return &Narrator{responder: r, store: store, timeout: timeout}
}

// AttachAll starts one narrative request per mode. Each result is stored
// as soon as it arrives, independently of the others. The returned channel
// is closed once every request has settled.
func (n *Narrator) AttachAll(ctx context.Context, report feasibility.Report) <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, mode := range feasibility.Modes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.attach(ctx, report, mode)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (n *Narrator) attach(ctx context.Context, report feasibility.Report, mode feasibility.Mode) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	text, ok := BuildNarrative(ctx, n.responder, report.Idea, mode, report.Result(mode))
	if !ok {
		log.Printf("No %s narrative for %s", mode, report.ID)
		return
	}

	stored, err := n.store.AttachNarrative(report.ID, mode, text)
	if err != nil {
		log.Printf("Error storing %s narrative for %s: %v", mode, report.ID, err)
		return
	}
	if !stored {
		log.Printf("Report %s was removed before its %s narrative arrived", report.ID, mode)
		return
	}

	if n.OnAttach != nil {
		n.OnAttach(report.ID, mode, text)
	}
}
