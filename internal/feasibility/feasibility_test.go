package feasibility

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func diff(a, b float64) float64 { return math.Abs(a - b) }

func baselineInputs() Inputs {
	return Inputs{Risk: 35, TimeValue: 5, ROITime: 18, LengthTimeFactor: 12, InterestRate: 6.5}
}

func TestComputeFeasibilityConservativeKnownValue(t *testing.T) {
	res := ComputeFeasibility(Conservative, baselineInputs())

	if res.CombinedRate != 11.5 {
		t.Errorf("expected combinedRate 11.5, got %v", res.CombinedRate)
	}
	// 1 / 1.115^1.5 = 0.8494
	if diff(res.PVFactor, 1/math.Pow(1.115, 1.5)) > 1e-9 {
		t.Errorf("unexpected pvFactor %f", res.PVFactor)
	}
	if diff(res.Details.RiskPenalty, 35) > 1e-9 {
		t.Errorf("expected riskPenalty 35, got %f", res.Details.RiskPenalty)
	}
	if diff(res.Details.TimelinePenalty, 4.8) > 1e-9 {
		t.Errorf("expected timelinePenalty 4.8, got %f", res.Details.TimelinePenalty)
	}
	if diff(res.Details.RatePenalty, 9.2) > 1e-9 {
		t.Errorf("expected ratePenalty 9.2, got %f", res.Details.RatePenalty)
	}
	want := int(math.Round(100/math.Pow(1.115, 1.5) - 35 - 4.8 - 9.2))
	if res.Score != want {
		t.Errorf("expected score %d, got %d", want, res.Score)
	}
	if res.Verdict != NotFeasible {
		t.Errorf("expected %q, got %q", NotFeasible, res.Verdict)
	}
	if res.Details.Thresholds != (Thresholds{Feasible: 60, Borderline: 45}) {
		t.Errorf("unexpected thresholds %+v", res.Details.Thresholds)
	}
}

func TestComputeFeasibilityModeOrdering(t *testing.T) {
	in := baselineInputs()
	c := ComputeFeasibility(Conservative, in)
	s := ComputeFeasibility(Safe, in)
	w := ComputeFeasibility(Wild, in)
	if !(c.Score <= s.Score && s.Score <= w.Score) {
		t.Errorf("expected conservative <= safe <= wild, got %d %d %d", c.Score, s.Score, w.Score)
	}
}

func TestComputeFeasibilityScoreAlwaysInRange(t *testing.T) {
	cases := []Inputs{
		{},
		{Risk: 100, TimeValue: 50, ROITime: 600, LengthTimeFactor: 0, InterestRate: 100},
		{Risk: 0, TimeValue: 0, ROITime: 0, LengthTimeFactor: 600, InterestRate: 0},
		{Risk: 50, TimeValue: 12, ROITime: 1, LengthTimeFactor: 12, InterestRate: 3},
		{Risk: math.NaN(), TimeValue: math.Inf(1), ROITime: 12, InterestRate: 5},
	}
	for _, in := range cases {
		for _, m := range Modes {
			res := ComputeFeasibility(m, in)
			if res.Score < 0 || res.Score > 100 {
				t.Errorf("%s %+v: score %d out of range", m, in, res.Score)
			}
		}
	}
}

func TestComputeFeasibilityZeroYears(t *testing.T) {
	res := ComputeFeasibility(Wild, Inputs{ROITime: 0, InterestRate: 10, TimeValue: 10})
	if res.PVFactor != 1 {
		t.Errorf("expected pvFactor 1 for zero years, got %f", res.PVFactor)
	}
}

func TestPVFactorInUnitInterval(t *testing.T) {
	for _, months := range []float64{0, 1, 18, 120, 600} {
		for _, rate := range []float64{0, 3, 12, 100} {
			res := ComputeFeasibility(Safe, Inputs{ROITime: months, InterestRate: rate, TimeValue: rate})
			if res.PVFactor <= 0 || res.PVFactor > 1 {
				t.Errorf("months=%v rate=%v: pvFactor %f outside (0,1]", months, rate, res.PVFactor)
			}
		}
	}
}

func TestVerdictMonotonicInScore(t *testing.T) {
	for _, m := range Modes {
		w := m.Weights()
		prev := -1
		for score := 0; score <= 100; score++ {
			rank := verdictFor(score, w).Rank()
			if rank < prev {
				t.Fatalf("%s: verdict rank dropped at score %d", m, score)
			}
			prev = rank
		}
	}
}

func TestVerdictThresholds(t *testing.T) {
	w := Safe.Weights()
	tests := []struct {
		score int
		want  Verdict
	}{
		{50, Feasible},
		{49, Borderline},
		{40, Borderline},
		{39, NotFeasible},
	}
	for _, tt := range tests {
		if got := verdictFor(tt.score, w); got != tt.want {
			t.Errorf("score %d: expected %q, got %q", tt.score, tt.want, got)
		}
	}
}

func TestComputeFeasibilityIdempotent(t *testing.T) {
	in := baselineInputs()
	a := ComputeFeasibility(Safe, in)
	b := ComputeFeasibility(Safe, in)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestComputeAllHasEveryMode(t *testing.T) {
	results := ComputeAll(baselineInputs())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, m := range Modes {
		if _, ok := results[m]; !ok {
			t.Errorf("missing result for %s", m)
		}
	}
}

func TestDeriveInputsFromIdeaSaaS(t *testing.T) {
	in := DeriveInputsFromIdea("We have a SaaS tool for existing customers, 8% interest, 18 months to ROI")
	if in.InterestRate != 8 {
		t.Errorf("expected interestRate 8, got %v", in.InterestRate)
	}
	if in.TimeValue != 8 {
		t.Errorf("expected timeValue 8, got %v", in.TimeValue)
	}
	if in.ROITime != 18 {
		t.Errorf("expected roiTime 18, got %v", in.ROITime)
	}
	if in.Risk != 25 {
		t.Errorf("expected risk 25, got %v", in.Risk)
	}
	if in.LengthTimeFactor != 12 {
		t.Errorf("expected lengthTimeFactor 12, got %v", in.LengthTimeFactor)
	}
}

func TestDeriveInputsFromIdeaDefaults(t *testing.T) {
	in := DeriveInputsFromIdea("A bakery downtown")
	want := Inputs{Risk: 35, TimeValue: 6.5, ROITime: 18, LengthTimeFactor: 12, InterestRate: 6.5}
	if in != want {
		t.Errorf("expected %+v, got %+v", want, in)
	}
}

func TestDeriveInputsFromIdeaRiskRules(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"entering a new market", 60},
		{"an enterprise product", 50},
		{"unproven enterprise tool", 60},
		{"high risk but loyal fans", 25},
		{"regulated recurring billing", 25},
	}
	for _, tt := range tests {
		if got := DeriveInputsFromIdea(tt.text).Risk; got != tt.want {
			t.Errorf("%q: expected risk %v, got %v", tt.text, tt.want, got)
		}
	}
}

func TestDeriveInputsFromIdeaHorizonAndRates(t *testing.T) {
	in := DeriveInputsFromIdea("Hardware manufacturing line, 15% cost of capital, 36 mo payback")
	if in.LengthTimeFactor != 24 {
		t.Errorf("expected lengthTimeFactor 24, got %v", in.LengthTimeFactor)
	}
	if in.InterestRate != 15 || in.TimeValue != 12 {
		t.Errorf("expected rate 15 / timeValue 12, got %v / %v", in.InterestRate, in.TimeValue)
	}
	if in.ROITime != 36 {
		t.Errorf("expected roiTime 36, got %v", in.ROITime)
	}

	if got := DeriveInputsFromIdea("Hardware sensors with a companion app").LengthTimeFactor; got != 12 {
		t.Errorf("software match should reset lengthTimeFactor to 12, got %v", got)
	}

	zero := DeriveInputsFromIdea("zero financing at 0%")
	if zero.InterestRate != 0 || zero.TimeValue != 5 {
		t.Errorf("expected rate 0 / timeValue 5, got %v / %v", zero.InterestRate, zero.TimeValue)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("This is a new market idea for enterprise customers with uncertain demand")
	want := []string{"enterprise", "customers", "uncertain", "demand"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestExtractKeywordsFrequencyFirst(t *testing.T) {
	got := ExtractKeywords("coffee beans, roasted coffee, coffee subscriptions and beans delivery service")
	if len(got) > 4 {
		t.Fatalf("expected at most 4 keywords, got %d", len(got))
	}
	if got[0] != "coffee" || got[1] != "beans" {
		t.Errorf("expected coffee, beans first, got %v", got)
	}
}

func TestSanitize(t *testing.T) {
	in := Inputs{Risk: 140, TimeValue: -2, ROITime: math.NaN(), LengthTimeFactor: 6, InterestRate: 7}.Sanitize()
	want := Inputs{Risk: 100, TimeValue: 0, ROITime: 0, LengthTimeFactor: 6, InterestRate: 7}
	if in != want {
		t.Errorf("expected %+v, got %+v", want, in)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" wild ")
	if err != nil || m != Wild {
		t.Errorf("expected Wild, got %q (%v)", m, err)
	}
	if _, err := ParseMode("reckless"); err != ErrUnknownMode {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestNewReport(t *testing.T) {
	now := time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC)
	r := NewReport("idea_1", "  Recurring SaaS billing for loyal gyms  ", now)
	if r.Idea != "Recurring SaaS billing for loyal gyms" {
		t.Errorf("expected trimmed idea, got %q", r.Idea)
	}
	if len(r.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(r.Results))
	}
	for _, m := range Modes {
		if !reflect.DeepEqual(r.Results[m], ComputeFeasibility(m, r.Inputs)) {
			t.Errorf("%s result not computed from report inputs", m)
		}
	}
	if r.Tags == nil {
		t.Error("expected non-nil tags")
	}
}
