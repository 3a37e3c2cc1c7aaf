package feasibility

import (
	"strings"
	"time"
)

// Report aggregates one idea with its derived inputs and a result per mode.
type Report struct {
	ID        string              `json:"id"`
	Idea      string              `json:"idea"`
	CreatedAt time.Time           `json:"createdAt"`
	Tags      []string            `json:"tags"`
	Inputs    Inputs              `json:"derivedInputs"`
	Results   map[Mode]ModeResult `json:"resultsByMode"`
}

// NewReport derives inputs from the idea text and scores every mode.
// Narratives are left empty; they are attached later.
func NewReport(id, idea string, now time.Time) Report {
	idea = strings.TrimSpace(idea)
	tags := ExtractKeywords(idea)
	if tags == nil {
		tags = []string{}
	}
	inputs := DeriveInputsFromIdea(idea)
	return Report{
		ID:        id,
		Idea:      idea,
		CreatedAt: now.UTC(),
		Tags:      tags,
		Inputs:    inputs,
		Results:   ComputeAll(inputs),
	}
}

// Result returns the stored result for a mode, recomputing it from the
// report's inputs when missing.
func (r Report) Result(m Mode) ModeResult {
	if res, ok := r.Results[m]; ok {
		return res
	}
	return ComputeFeasibility(m, r.Inputs)
}
