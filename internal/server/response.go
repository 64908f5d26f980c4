package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"docbay/internal/constants"
	"docbay/internal/services"
)

// APIError represents a standard error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error response
func WriteError(w http.ResponseWriter, status int, message string, code string) {
	WriteJSON(w, status, APIError{
		Code:    code,
		Message: message,
	})
}

// WriteSuccess writes a simple success response
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// handleServiceError maps service errors to HTTP responses. Internal
// faults are logged in full and reported with a generic body.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		s.logger.Error("Unhandled error: %v", err)
		WriteError(w, http.StatusInternalServerError, "Server Error", constants.ErrCodeInternalError)
		return
	}
	code := svcErr.Code

	status := http.StatusInternalServerError
	switch code {
	case constants.ErrCodeInvalidRequest, constants.ErrCodeInvalidWhere,
		constants.ErrCodeMissingFields, constants.ErrCodeMissingID,
		constants.ErrCodeWrongVerb:
		status = http.StatusBadRequest
	case constants.ErrCodeCollectionNotFound, constants.ErrCodeRecordNotFound,
		constants.ErrCodeRelationNotFound:
		status = http.StatusNotFound
	case constants.ErrCodeUserExists:
		status = http.StatusConflict
	case constants.ErrCodeAuthRequired:
		status = http.StatusUnauthorized
	case constants.ErrCodeInvalidToken, constants.ErrCodeLoginFailed,
		constants.ErrCodeNoSession, constants.ErrCodeRuleDenied:
		status = http.StatusForbidden
	}

	message := svcErr.Message
	if status == http.StatusInternalServerError {
		s.logger.Error("Internal error: %v", err)
		message = "Server Error"
	}

	WriteError(w, status, message, code)
}
