package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	DisplayName     string `json:"display_name"`
	InvitationToken string `json:"invitation_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("malformed request body"), s.log, s.devErrors)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, apperr.ValidationWithDetails("invalid registration payload", err.Error()), s.log, s.devErrors)
		return
	}

	u, err := s.identity.Register(r.Context(), req.Username, req.Email, req.Password, req.DisplayName, req.InvitationToken)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeCreated(w, u, s.log)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("malformed request body"), s.log, s.devErrors)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, apperr.Validation("username and password are required"), s.log, s.devErrors)
		return
	}

	u, token, err := s.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, loginResponse{Token: token, User: u}, s.log)
}

func (s *Server) handlePublicAuthSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.admin.AuthSettings(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, map[string]domain.AuthFlow{"auth_flow": settings.AuthFlow}, s.log)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.admin.GetUser(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, u, s.log)
}
