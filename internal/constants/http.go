package constants

// HTTP headers
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"

	// HeaderAuthorization carries the opaque bearer token issued at login.
	HeaderAuthorization = "X-Authorization"

	// HeaderAdmin is a separate signal consumed only by the rule engine.
	// Its presence bypasses a failed top-level rule, never field rules.
	HeaderAdmin = "X-Admin"

	HeaderCORSOrigin      = "Access-Control-Allow-Origin"
	HeaderCORSMethods     = "Access-Control-Allow-Methods"
	HeaderCORSHeaders     = "Access-Control-Allow-Headers"
	HeaderCORSCredentials = "Access-Control-Allow-Credentials"
	HeaderCORSMaxAge      = "Access-Control-Max-Age"
)

// CORS values matching the original service contract.
const (
	CORSAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	CORSAllowedHeaders = "X-Requested-With, X-HTTP-Method-Override, Content-Type, Accept, X-Authorization, X-Admin, Access-Control-Allow-Origin, Vary"
	CORSMaxAge         = "86400"
)

// Query string parameter names.
const (
	ParamWhere    = "where"
	ParamSortBy   = "sortBy"
	ParamOffset   = "offset"
	ParamPageSize = "pageSize"
	ParamDistinct = "distinct"
	ParamCount    = "count"
	ParamSelect   = "select"
	ParamLoad     = "load"
)
