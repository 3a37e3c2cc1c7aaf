package feasibility

import "math"

// ComputeFeasibility scores inputs under the given mode. It never fails:
// non-finite intermediates are coerced to 0 before clamping.
func ComputeFeasibility(mode Mode, in Inputs) ModeResult {
	w := mode.Weights()

	combinedRate := finite((in.TimeValue + in.InterestRate) / 100)
	years := math.Max(finite(in.ROITime), 0) / 12

	pvFactor := 1.0
	if years > 0 {
		pvFactor = finite(1 / math.Pow(1+combinedRate, years))
	}

	baseScore := 100 * pvFactor
	riskPenalty := finite(in.Risk * w.Risk)
	timelinePenalty := finite(math.Max(0, in.ROITime-in.LengthTimeFactor) * w.Time)
	ratePenalty := finite(combinedRate * 100 * w.Rate)

	raw := finite(baseScore - riskPenalty - timelinePenalty - ratePenalty)
	score := int(clamp(math.Round(raw), 0, 100))

	return ModeResult{
		Score:        score,
		Verdict:      verdictFor(score, w),
		PVFactor:     pvFactor,
		CombinedRate: math.Round(combinedRate*10000) / 100,
		Details: Details{
			RiskPenalty:     riskPenalty,
			TimelinePenalty: timelinePenalty,
			RatePenalty:     ratePenalty,
			Thresholds:      Thresholds{Feasible: w.Feasible, Borderline: w.Borderline},
		},
	}
}

// ComputeAll scores the same inputs under every mode.
func ComputeAll(in Inputs) map[Mode]ModeResult {
	results := make(map[Mode]ModeResult, len(Modes))
	for _, m := range Modes {
		results[m] = ComputeFeasibility(m, in)
	}
	return results
}

func verdictFor(score int, w Weights) Verdict {
	switch {
	case score >= w.Feasible:
		return Feasible
	case score >= w.Borderline:
		return Borderline
	default:
		return NotFeasible
	}
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

func finite(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func nonNegative(n float64) float64 {
	return math.Max(finite(n), 0)
}
