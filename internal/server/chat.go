package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/joseph/internal/chat"
)

type explainRequest struct {
	Description string `json:"description"`
	Data        any    `json:"data"`
}

func (s *Server) chatRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/contexts", s.handleContexts)
		r.Get("/{context}", s.handleChatHistory)
		r.Post("/{context}", s.handleChatSend)
		r.Delete("/{context}", s.handleChatClear)
		r.Post("/{context}/explain", s.handleExplain)
	})
}

func (s *Server) handleContexts(w http.ResponseWriter, r *http.Request) {
	contexts := chat.Contexts
	if route := r.URL.Query().Get("route"); route != "" {
		mc, ok := chat.ContextForRoute(route)
		if !ok {
			writeError(w, http.StatusNotFound, "no context for route")
			return
		}
		contexts = []chat.ModuleContext{mc}
	}
	writeJSON(w, http.StatusOK, contexts)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.pipe.Assistant().Switch(chi.URLParam(r, "context"))
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.pipe.Assistant().Send(r.Context(), chi.URLParam(r, "context"), req.Content)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	greeting, err := s.pipe.Assistant().Clear(chi.URLParam(r, "context"))
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, greeting)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.pipe.Assistant().Explain(r.Context(), chi.URLParam(r, "context"), req.Description, req.Data)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrUnknownContext):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
