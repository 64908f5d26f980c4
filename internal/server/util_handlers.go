package server

import (
	"net/http"
	"strconv"

	"docbay/internal/audit"
	"docbay/internal/constants"
	"docbay/internal/document"
)

// handleThrottleStatus serves GET /util/throttle: the current flag value.
func (s *Server) handleThrottleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}
	WriteSuccess(w, s.app.Throttled())
}

// handleUtilFlags serves POST /util: boolean service flags set from the
// body. Only the throttle flag is recognized; unknown keys are ignored.
func (s *Server) handleUtilFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	if value, ok := body["throttle"]; ok {
		on := document.Truthy(value)
		s.app.SetThrottled(on)
		s.logger.Info("Util: throttle set to %t", on)
	}

	WriteSuccess(w, document.Doc{"throttle": s.app.Throttled()})
}

// handleAuditQuery serves GET /admin/audit: recent audit entries with
// optional action, collection, and user filters.
func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}
	if s.app.AuditLogger == nil {
		WriteError(w, http.StatusNotFound, "Audit log is not enabled", constants.ErrCodeAuditError)
		return
	}

	q := r.URL.Query()
	opts := auditQueryOptions(q.Get("action"), q.Get("collection"), q.Get("user"),
		q.Get("limit"), q.Get("offset"))

	entries, err := s.app.AuditLogger.Query(opts)
	if err != nil {
		s.logger.Error("Audit query: %v", err)
		WriteError(w, http.StatusInternalServerError, "Server Error", constants.ErrCodeAuditError)
		return
	}

	total, err := s.app.AuditLogger.Count(opts)
	if err != nil {
		s.logger.Error("Audit count: %v", err)
		WriteError(w, http.StatusInternalServerError, "Server Error", constants.ErrCodeAuditError)
		return
	}

	WriteSuccess(w, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

func auditQueryOptions(action, collection, user, limit, offset string) audit.QueryOptions {
	opts := audit.QueryOptions{
		Action:     action,
		Collection: collection,
		UserID:     user,
	}
	if n, err := strconv.Atoi(limit); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(offset); err == nil && n > 0 {
		opts.Offset = n
	}
	return opts
}
