package database

// timeLayout is a fixed-width RFC 3339 layout so stored timestamps sort
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// reportRow is a feasibility_reports row. Tags and inputs are JSON text.
type reportRow struct {
	ID        string `db:"id"`
	Idea      string `db:"idea"`
	CreatedAt string `db:"created_at"`
	Tags      string `db:"tags"`
	Inputs    string `db:"inputs"`
}

// modeResultRow is a mode_results row.
type modeResultRow struct {
	ReportID            string  `db:"report_id"`
	Mode                string  `db:"mode"`
	Score               int     `db:"score"`
	Verdict             string  `db:"verdict"`
	PVFactor            float64 `db:"pv_factor"`
	CombinedRate        float64 `db:"combined_rate"`
	RiskPenalty         float64 `db:"risk_penalty"`
	TimelinePenalty     float64 `db:"timeline_penalty"`
	RatePenalty         float64 `db:"rate_penalty"`
	FeasibleThreshold   int     `db:"feasible_threshold"`
	BorderlineThreshold int     `db:"borderline_threshold"`
	Narrative           string  `db:"narrative"`
}

// messageRow is a chat_messages row.
type messageRow struct {
	ID           string `db:"id"`
	Conversation string `db:"conversation"`
	Role         string `db:"role"`
	Content      string `db:"content"`
	Context      string `db:"context"`
	CreatedAt    string `db:"created_at"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	Reports           int
	PendingNarratives int
	Conversations     int
	Messages          int
}
