package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/joseph/internal/chat"
	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/pipeline"
)

// reportView is a report as served over the API, with narratives also
// rendered to HTML.
type reportView struct {
	feasibility.Report
	NarrativeHTML map[feasibility.Mode]string `json:"narrativeHtml"`
}

func newReportView(r feasibility.Report) reportView {
	v := reportView{Report: r, NarrativeHTML: map[feasibility.Mode]string{}}
	for mode, res := range r.Results {
		if res.Narrative != "" {
			v.NarrativeHTML[mode] = string(renderMarkdown(res.Narrative))
		}
	}
	return v
}

type analyzeRequest struct {
	Idea string `json:"idea"`
}

type scoreRequest struct {
	Mode   string             `json:"mode"`
	Inputs feasibility.Inputs `json:"inputs"`
}

type messageRequest struct {
	Content string `json:"content"`
}

func (s *Server) feasibilityRoutes(r chi.Router) {
	r.Route("/api/feasibility", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Post("/", s.handleAnalyze)
		r.Post("/score", s.handleScore)
		r.Get("/{id}", s.handleGetReport)
		r.Delete("/{id}", s.handleDeleteReport)
		r.Get("/{id}/chat", s.handleReportChatHistory)
		r.Post("/{id}/chat", s.handleReportChat)
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports := s.pipe.Reports()
	views := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		views = append(views, newReportView(rep))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.pipe.Analyze(r.Context(), req.Idea)
	if errors.Is(err, pipeline.ErrEmptyIdea) {
		writeError(w, http.StatusBadRequest, "idea is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newReportView(res.Report))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var mode feasibility.Mode
	if req.Mode != "" {
		m, err := feasibility.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error()+": "+req.Mode)
			return
		}
		mode = m
	}

	results, err := s.pipe.Score(mode, req.Inputs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep := s.pipe.Report(chi.URLParam(r, "id"))
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, newReportView(*rep))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.pipe.DeleteReport(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportChatHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.pipe.Report(id) == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Assistant().ReportHistory(id))
}

func (s *Server) handleReportChat(w http.ResponseWriter, r *http.Request) {
	rep := s.pipe.Report(chi.URLParam(r, "id"))
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.pipe.Assistant().SendReportChat(r.Context(), *rep, req.Content)
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
