package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/joseph/internal/chat"
	"github.com/TobiSchelling/joseph/internal/config"
	"github.com/TobiSchelling/joseph/internal/database"
	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/fetch"
	"github.com/TobiSchelling/joseph/internal/llm"
	"github.com/TobiSchelling/joseph/internal/narrate"
)

// ErrEmptyIdea is returned when an idea has no text.
var ErrEmptyIdea = errors.New("idea is empty")

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the outcome of analyzing one idea.
type Result struct {
	Report feasibility.Report
	Steps  []StepResult
	// Done is closed once every narrative request has settled.
	Done <-chan struct{}
}

// Pipeline wires scoring, persistence, narratives and chat together.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	responder llm.Responder
	providers []string
	fetcher   *fetch.Fetcher
	narrator  *narrate.Narrator
	assistant *chat.Assistant
	now       func() time.Time
}

// New creates a pipeline using the provider chain from cfg.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	orch := llm.CreateOrchestrator(cfg.LLM)
	p := NewWithResponder(cfg, db, orch)
	p.providers = orch.Configured()
	return p
}

// NewWithResponder creates a pipeline around an explicit responder.
func NewWithResponder(cfg *config.Config, db *database.DB, r llm.Responder) *Pipeline {
	fetcher := fetch.New(fetch.Options{
		Timeout:   cfg.Fetch.Timeout(),
		MaxURLs:   cfg.Fetch.MaxURLs,
		MaxChars:  cfg.Fetch.MaxChars,
		CacheSize: cfg.Fetch.CacheSize,
		UserAgent: cfg.Fetch.UserAgent,
	})
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		responder: r,
		fetcher:   fetcher,
		narrator:  narrate.NewNarrator(r, db, cfg.LLM.Timeout()),
		assistant: chat.NewAssistant(r, db, fetcher),
		now:       time.Now,
	}
}

// Assistant returns the chat assistant.
func (p *Pipeline) Assistant() *chat.Assistant {
	return p.assistant
}

// Providers returns the names of configured providers, in chain order.
func (p *Pipeline) Providers() []string {
	return p.providers
}

// OnNarrative registers a callback for narratives as they are stored.
func (p *Pipeline) OnNarrative(fn func(reportID string, mode feasibility.Mode, text string)) {
	p.narrator.OnAttach = fn
}

// Analyze scores an idea, stores the report and starts narrative
// generation in the background. The report is returned without waiting
// for narratives; they are attached as they arrive.
func (p *Pipeline) Analyze(ctx context.Context, idea string) (*Result, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, ErrEmptyIdea
	}

	r := &Result{}

	// Step 1: Derive and score
	report := feasibility.NewReport("idea_"+uuid.NewString(), idea, p.now())
	r.Report = report
	r.Steps = append(r.Steps, StepResult{
		Name:    "Score",
		Summary: scoreSummary(report),
	})

	// Step 2: Store
	if err := p.db.InsertReport(report); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Store", Err: err})
		return r, fmt.Errorf("storing report: %w", err)
	}
	r.Steps = append(r.Steps, StepResult{Name: "Store", Summary: "Saved as " + report.ID})

	// Step 3: Narrate (async); must outlive the request that started it.
	r.Done = p.narrator.AttachAll(context.WithoutCancel(ctx), report)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Narrate",
		Summary: fmt.Sprintf("Requested %d narratives", len(feasibility.Modes)),
	})

	log.Printf("Analyzed idea %s: %s", report.ID, scoreSummary(report))
	return r, nil
}

// Score evaluates explicit inputs for one mode, or for all modes when
// mode is empty. Inputs are clamped into range first.
func (p *Pipeline) Score(mode feasibility.Mode, in feasibility.Inputs) (map[feasibility.Mode]feasibility.ModeResult, error) {
	in = in.Sanitize()
	if mode == "" {
		return feasibility.ComputeAll(in), nil
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %s", feasibility.ErrUnknownMode, mode)
	}
	return map[feasibility.Mode]feasibility.ModeResult{mode: feasibility.ComputeFeasibility(mode, in)}, nil
}

// Reports lists stored reports, newest first. Read failures yield an
// empty list.
func (p *Pipeline) Reports() []feasibility.Report {
	reports, err := p.db.ListReports()
	if err != nil {
		log.Printf("Error listing reports: %v", err)
		return []feasibility.Report{}
	}
	return reports
}

// Report returns a stored report, or nil when it does not exist.
func (p *Pipeline) Report(id string) *feasibility.Report {
	r, err := p.db.GetReport(id)
	if err != nil {
		log.Printf("Error loading report %s: %v", id, err)
		return nil
	}
	return r
}

// DeleteReport removes a report. It reports whether anything was deleted.
func (p *Pipeline) DeleteReport(id string) (bool, error) {
	return p.db.DeleteReport(id)
}

// Status summarizes stored data and provider availability.
type Status struct {
	Stats     *database.Stats
	Providers []string
	Database  string
}

// Status returns current statistics.
func (p *Pipeline) Status() (*Status, error) {
	stats, err := p.db.GetStats()
	if err != nil {
		return nil, err
	}
	return &Status{Stats: stats, Providers: p.providers, Database: p.db.Path()}, nil
}

func scoreSummary(r feasibility.Report) string {
	parts := make([]string, 0, len(feasibility.Modes))
	for _, m := range feasibility.Modes {
		res := r.Result(m)
		parts = append(parts, fmt.Sprintf("%s %d (%s)", m, res.Score, res.Verdict))
	}
	return strings.Join(parts, ", ")
}
