package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, tags, s.log)
}

func (s *Server) handleTagsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	categories, err := s.tags.ListCategories(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	found := false
	for _, c := range categories {
		if c == category {
			found = true
			break
		}
	}
	if !found {
		writeError(w, apperr.NotFound("unknown tag category"), s.log, s.devErrors)
		return
	}

	tags, err := s.tags.List(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	var out []*domain.Tag
	for _, t := range tags {
		if t.Category == category {
			out = append(out, t)
		}
	}
	writeOK(w, out, s.log)
}

func (s *Server) handleSetTagPreference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State domain.TagPreferenceMode `json:"state" validate:"required,oneof=allow deny"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, apperr.Validation("state must be allow or deny"), s.log, s.devErrors)
		return
	}

	t, err := s.store.GetTagByName(r.Context(), chi.URLParam(r, "tagName"))
	if err != nil {
		writeError(w, apperr.NotFound("tag not found"), s.log, s.devErrors)
		return
	}
	if err := s.tags.SetUserPreference(r.Context(), userID(r.Context()), t.ID, req.State); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}
