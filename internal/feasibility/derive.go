package feasibility

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultInterestRate = 6.5
	defaultTimeValue    = 5
	defaultROIMonths    = 18
	defaultRisk         = 35
	maxKeywords         = 4
)

var (
	percentRe = regexp.MustCompile(`(\d{1,2}(?:\.\d+)?)%`)
	monthsRe  = regexp.MustCompile(`(\d{1,3})\s*(?:months|month|mo)`)

	highRiskRe    = regexp.MustCompile(`high\s*risk|uncertain|unproven|new\s*market`)
	slowSaleRe    = regexp.MustCompile(`regulated|enterprise|long\s*cycle`)
	lowRiskRe     = regexp.MustCompile(`recurring|existing\s*customers|loyal`)
	longHorizonRe = regexp.MustCompile(`infrastructure|hardware|manufacturing`)
	softwareRe    = regexp.MustCompile(`software|saas|app`)

	nonWordRe = regexp.MustCompile(`[^a-z0-9\s]`)
)

var stopwords = map[string]struct{}{
	"with": {}, "that": {}, "this": {}, "from": {}, "your": {}, "have": {},
	"will": {}, "they": {}, "them": {}, "into": {}, "about": {}, "idea": {},
	"market": {}, "users": {}, "their": {}, "more": {}, "less": {},
}

// DeriveInputsFromIdea extracts scoring inputs from a free-text idea using
// pattern matches and keyword heuristics.
func DeriveInputsFromIdea(text string) Inputs {
	lower := strings.ToLower(text)

	interestRate := defaultInterestRate
	if m := percentRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			interestRate = clamp(v, 0, 100)
		}
	}

	timeValue := float64(defaultTimeValue)
	if interestRate > 0 {
		timeValue = clamp(interestRate, 3, 12)
	}

	roiTime := float64(defaultROIMonths)
	if m := monthsRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			roiTime = clamp(float64(v), 0, 600)
		}
	}

	// Order matters: the lowering rule wins over both raising rules.
	risk := float64(defaultRisk)
	if highRiskRe.MatchString(lower) {
		risk = 60
	}
	if slowSaleRe.MatchString(lower) && risk < 50 {
		risk = 50
	}
	if lowRiskRe.MatchString(lower) {
		risk = 25
	}

	lengthTimeFactor := 12.0
	if longHorizonRe.MatchString(lower) {
		lengthTimeFactor = 24
	}
	if softwareRe.MatchString(lower) {
		lengthTimeFactor = 12
	}

	return Inputs{
		Risk:             risk,
		TimeValue:        timeValue,
		ROITime:          roiTime,
		LengthTimeFactor: lengthTimeFactor,
		InterestRate:     interestRate,
	}
}

// ExtractKeywords returns up to four of the most frequent meaningful words
// in text. Ties keep first-seen order.
func ExtractKeywords(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}
