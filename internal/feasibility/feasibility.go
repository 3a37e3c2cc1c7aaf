package feasibility

import (
	"errors"
	"strings"
)

// ErrUnknownMode is returned by ParseMode for names outside the mode table.
var ErrUnknownMode = errors.New("unknown feasibility mode")

// Mode is a fixed risk-tolerance profile used to weight penalties.
type Mode string

const (
	Conservative Mode = "Conservative"
	Safe         Mode = "Safe"
	Wild         Mode = "Wild"
)

// Modes lists every mode in display order.
var Modes = []Mode{Conservative, Safe, Wild}

// Weights is the immutable weighting profile of a mode.
type Weights struct {
	Risk       float64
	Time       float64
	Rate       float64
	Feasible   int
	Borderline int
}

var modeWeights = map[Mode]Weights{
	Conservative: {Risk: 1.0, Time: 0.8, Rate: 0.8, Feasible: 60, Borderline: 45},
	Safe:         {Risk: 0.7, Time: 0.5, Rate: 0.6, Feasible: 50, Borderline: 40},
	Wild:         {Risk: 0.4, Time: 0.3, Rate: 0.4, Feasible: 40, Borderline: 30},
}

// Weights returns the mode's weighting profile. Unknown modes get the
// Conservative profile.
func (m Mode) Weights() Weights {
	if w, ok := modeWeights[m]; ok {
		return w
	}
	return modeWeights[Conservative]
}

// Valid reports whether m is one of the three fixed modes.
func (m Mode) Valid() bool {
	_, ok := modeWeights[m]
	return ok
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", ErrUnknownMode
}

// Verdict is the categorical outcome of scoring.
type Verdict string

const (
	Feasible    Verdict = "Feasible"
	Borderline  Verdict = "Borderline"
	NotFeasible Verdict = "Not Feasible"
)

// Rank orders verdicts: NotFeasible < Borderline < Feasible.
func (v Verdict) Rank() int {
	switch v {
	case Feasible:
		return 2
	case Borderline:
		return 1
	default:
		return 0
	}
}

// Inputs are the numeric drivers of a feasibility score.
type Inputs struct {
	Risk             float64 `json:"risk"`             // 0-100
	TimeValue        float64 `json:"timeValue"`        // % discount rate
	ROITime          float64 `json:"roiTime"`          // months
	LengthTimeFactor float64 `json:"lengthTimeFactor"` // months
	InterestRate     float64 `json:"interestRate"`     // %
}

// Sanitize clamps explicitly supplied inputs into their valid ranges.
// Non-finite values become 0.
func (in Inputs) Sanitize() Inputs {
	return Inputs{
		Risk:             clamp(finite(in.Risk), 0, 100),
		TimeValue:        nonNegative(in.TimeValue),
		ROITime:          nonNegative(in.ROITime),
		LengthTimeFactor: nonNegative(in.LengthTimeFactor),
		InterestRate:     nonNegative(in.InterestRate),
	}
}

// Thresholds is the verdict threshold pair used for a result.
type Thresholds struct {
	Feasible   int `json:"feasible"`
	Borderline int `json:"borderline"`
}

// Details breaks a score down into its penalty contributions.
type Details struct {
	RiskPenalty     float64    `json:"riskPenalty"`
	TimelinePenalty float64    `json:"timelinePenalty"`
	RatePenalty     float64    `json:"ratePenalty"`
	Thresholds      Thresholds `json:"thresholds"`
}

// ModeResult is the outcome of scoring one mode.
type ModeResult struct {
	Score        int     `json:"score"`
	Verdict      Verdict `json:"verdict"`
	PVFactor     float64 `json:"pvFactor"`
	CombinedRate float64 `json:"combinedRate"` // percent, 2dp
	Details      Details `json:"details"`
	Narrative    string  `json:"narrative,omitempty"`
}
