package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/joseph/internal/feasibility"
)

const insertModeResultSQL = `
INSERT INTO mode_results (
    report_id, mode, score, verdict, pv_factor, combined_rate,
    risk_penalty, timeline_penalty, rate_penalty,
    feasible_threshold, borderline_threshold, narrative
) VALUES (
    :report_id, :mode, :score, :verdict, :pv_factor, :combined_rate,
    :risk_penalty, :timeline_penalty, :rate_penalty,
    :feasible_threshold, :borderline_threshold, :narrative
)`

// InsertReport stores a report and its per-mode results in one transaction.
func (db *DB) InsertReport(r feasibility.Report) error {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	inputsJSON, err := json.Marshal(r.Inputs)
	if err != nil {
		return fmt.Errorf("encoding inputs: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(
		`INSERT INTO feasibility_reports (id, idea, created_at, tags, inputs)
		 VALUES (:id, :idea, :created_at, :tags, :inputs)`,
		reportRow{
			ID:        r.ID,
			Idea:      r.Idea,
			CreatedAt: r.CreatedAt.UTC().Format(timeLayout),
			Tags:      string(tagsJSON),
			Inputs:    string(inputsJSON),
		},
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}

	for _, mode := range feasibility.Modes {
		res, ok := r.Results[mode]
		if !ok {
			continue
		}
		if _, err := tx.NamedExec(insertModeResultSQL, toModeResultRow(r.ID, mode, res)); err != nil {
			return fmt.Errorf("inserting %s result: %w", mode, err)
		}
	}

	return tx.Commit()
}

// GetReport returns a report by ID, or nil if it does not exist.
func (db *DB) GetReport(id string) (*feasibility.Report, error) {
	var row reportRow
	err := db.conn.Get(&row, "SELECT id, idea, created_at, tags, inputs FROM feasibility_reports WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []modeResultRow
	if err := db.conn.Select(&results, "SELECT * FROM mode_results WHERE report_id = ?", id); err != nil {
		return nil, err
	}

	r, err := fromReportRow(row, results)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns every report, newest first.
func (db *DB) ListReports() ([]feasibility.Report, error) {
	var rows []reportRow
	err := db.conn.Select(&rows, "SELECT id, idea, created_at, tags, inputs FROM feasibility_reports ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}

	var results []modeResultRow
	if err := db.conn.Select(&results, "SELECT * FROM mode_results"); err != nil {
		return nil, err
	}
	byReport := make(map[string][]modeResultRow)
	for _, res := range results {
		byReport[res.ReportID] = append(byReport[res.ReportID], res)
	}

	reports := make([]feasibility.Report, 0, len(rows))
	for _, row := range rows {
		r, err := fromReportRow(row, byReport[row.ID])
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// DeleteReport removes a report and its results. It reports whether a row
// was deleted.
func (db *DB) DeleteReport(id string) (bool, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM feasibility_reports WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	if _, err := tx.Exec("DELETE FROM chat_messages WHERE conversation = ?", ReportConversation(id)); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// AttachNarrative stores the narrative for one mode of a report. It reports
// false when the report (or mode) no longer exists.
func (db *DB) AttachNarrative(reportID string, mode feasibility.Mode, text string) (bool, error) {
	res, err := db.conn.Exec(
		"UPDATE mode_results SET narrative = ? WHERE report_id = ? AND mode = ?",
		text, reportID, string(mode),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func toModeResultRow(reportID string, mode feasibility.Mode, res feasibility.ModeResult) modeResultRow {
	return modeResultRow{
		ReportID:            reportID,
		Mode:                string(mode),
		Score:               res.Score,
		Verdict:             string(res.Verdict),
		PVFactor:            res.PVFactor,
		CombinedRate:        res.CombinedRate,
		RiskPenalty:         res.Details.RiskPenalty,
		TimelinePenalty:     res.Details.TimelinePenalty,
		RatePenalty:         res.Details.RatePenalty,
		FeasibleThreshold:   res.Details.Thresholds.Feasible,
		BorderlineThreshold: res.Details.Thresholds.Borderline,
		Narrative:           res.Narrative,
	}
}

func fromReportRow(row reportRow, results []modeResultRow) (feasibility.Report, error) {
	r := feasibility.Report{
		ID:      row.ID,
		Idea:    row.Idea,
		Tags:    []string{},
		Results: make(map[feasibility.Mode]feasibility.ModeResult, len(results)),
	}

	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return r, fmt.Errorf("parsing created_at for %s: %w", row.ID, err)
	}
	r.CreatedAt = created

	if err := json.Unmarshal([]byte(row.Tags), &r.Tags); err != nil {
		return r, fmt.Errorf("decoding tags for %s: %w", row.ID, err)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if err := json.Unmarshal([]byte(row.Inputs), &r.Inputs); err != nil {
		return r, fmt.Errorf("decoding inputs for %s: %w", row.ID, err)
	}

	for _, res := range results {
		r.Results[feasibility.Mode(res.Mode)] = feasibility.ModeResult{
			Score:        res.Score,
			Verdict:      feasibility.Verdict(res.Verdict),
			PVFactor:     res.PVFactor,
			CombinedRate: res.CombinedRate,
			Details: feasibility.Details{
				RiskPenalty:     res.RiskPenalty,
				TimelinePenalty: res.TimelinePenalty,
				RatePenalty:     res.RatePenalty,
				Thresholds: feasibility.Thresholds{
					Feasible:   res.FeasibleThreshold,
					Borderline: res.BorderlineThreshold,
				},
			},
			Narrative: res.Narrative,
		}
	}
	return r, nil
}
