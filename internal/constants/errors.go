package constants

// API error codes. The server layer maps each code family to an HTTP status:
// request errors to 400, not-found to 404, conflict to 409, authorization
// to 401, credential to 403, everything else to 500.
const (
	// Request errors (400)
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInvalidWhere   = "INVALID_WHERE"
	ErrCodeMissingFields  = "MISSING_FIELDS"
	ErrCodeMissingID      = "MISSING_ID"
	ErrCodeWrongVerb      = "WRONG_VERB"

	// Not found (404)
	ErrCodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	ErrCodeRecordNotFound     = "RECORD_NOT_FOUND"
	ErrCodeRelationNotFound   = "RELATION_NOT_FOUND"

	// Conflict (409)
	ErrCodeUserExists = "USER_EXISTS"

	// Authorization (401): a principal is required and absent
	ErrCodeAuthRequired = "AUTH_REQUIRED"

	// Credential (403): bad token, bad login, or denied by rule
	ErrCodeInvalidToken = "INVALID_TOKEN"
	ErrCodeLoginFailed  = "LOGIN_FAILED"
	ErrCodeNoSession    = "NO_SESSION"
	ErrCodeRuleDenied   = "RULE_DENIED"

	// Internal (500)
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeAuditError    = "AUDIT_ERROR"
)
