package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dustbooks/dust-server/internal/apperr"
)

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, p, s.log)
}

type updateProgressRequest struct {
	CurrentPage int  `json:"current_page" validate:"gte=0"`
	TotalPages  *int `json:"total_pages"`
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, apperr.Validation("current_page must be non-negative"), s.log, s.devErrors)
		return
	}

	p, err := s.progress.Update(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.CurrentPage, req.TotalPages)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, p, s.log)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if _, err := s.progress.Reset(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleStartProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Start(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, p, s.log)
}

func (s *Server) handleCompleteProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Complete(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, p, s.log)
}

func (s *Server) handleReadingRecent(w http.ResponseWriter, r *http.Request) {
	items, err := s.progress.Recent(r.Context(), userID(r.Context()), 20)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, items, s.log)
}

func (s *Server) handleCurrentlyReading(w http.ResponseWriter, r *http.Request) {
	items, err := s.progress.CurrentlyReading(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, items, s.log)
}

func (s *Server) handleReadingCompleted(w http.ResponseWriter, r *http.Request) {
	items, err := s.progress.Completed(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, items, s.log)
}

func (s *Server) handleReadingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.progress.Stats(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, stats, s.log)
}
