package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, users, s.log)
}

func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.admin.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, u, s.log)
}

func (s *Server) handleAdminDeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAdminReactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Reactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAdminSetUserRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Roles []string `json:"roles" validate:"required,min=1"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	if err := s.admin.SetRoles(r.Context(), chi.URLParam(r, "id"), req.Roles); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAdminListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.admin.ListRoleCatalog(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, roles, s.log)
}

func (s *Server) handleAdminListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.admin.ListPermissionCatalog(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, perms, s.log)
}

func (s *Server) handleAdminSetRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions []string `json:"permissions" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	if err := s.admin.SetRolePermissions(r.Context(), chi.URLParam(r, "id"), req.Permissions); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAdminGetAuthSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.admin.AuthSettings(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, settings, s.log)
}

func (s *Server) handleAdminSetAuthSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthFlow domain.AuthFlow `json:"auth_flow" validate:"required,oneof=signup invitation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		writeError(w, apperr.Validation("auth_flow must be signup or invitation"), s.log, s.devErrors)
		return
	}
	if err := s.identity.SetAuthFlow(r.Context(), req.AuthFlow); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAdminListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.admin.ListInvitations(r.Context())
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, invitations, s.log)
}

type createInvitationResponse struct {
	Invitation *domain.Invitation `json:"invitation"`
	Token      string             `json:"token"`
}

func (s *Server) handleAdminCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = decodeJSON(r, &req)

	inv, token, err := s.identity.CreateInvitation(r.Context(), userID(r.Context()), req.Email)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeCreated(w, createInvitationResponse{Invitation: inv, Token: token}, s.log)
}

func (s *Server) handleAdminRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.RevokeInvitation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}
