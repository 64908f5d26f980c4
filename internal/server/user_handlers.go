package server

import (
	"net/http"

	"docbay/internal/auth"
	"docbay/internal/constants"
	"docbay/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	user, err := s.app.Auth.Register(body)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionUserRegister, constants.CollectionUsers, recordID(user), recordID(user), nil)
	WriteSuccess(w, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	user, err := s.app.Auth.Login(body)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionUserLogin, constants.CollectionUsers, recordID(user), recordID(user), nil)
	WriteSuccess(w, user)
}

// handleLogout invalidates the caller's session and responds with no body.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}

	principal := auth.GetPrincipal(r)
	if err := s.app.Auth.Logout(principal); err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionUserLogout, constants.CollectionUsers, principalID(principal), principalID(principal), nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}

	principal := auth.GetPrincipal(r)
	if principal == nil {
		s.handleServiceError(w, services.ErrAuthRequired)
		return
	}
	WriteSuccess(w, principal)
}
