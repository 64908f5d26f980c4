package constants

import "time"

// Application identity
const (
	AppName        = "docbay"
	AppDisplayName = "DocBay"
)

// Server defaults
const (
	DefaultPort     = 3030
	DefaultLogLevel = "DEBUG"

	HTTPIdleTimeout     = 120 * time.Second
	ShutdownTimeoutSecs = 10
)

// Query engine defaults
const (
	// DefaultPageSize is applied only when the pageSize parameter is present
	// but the full default matters for documentation: absent pageSize returns
	// the whole result set.
	DefaultPageSize = 10

	// DistinctKeySeparator joins field values into the composite dedup key.
	DistinctKeySeparator = "::"
)

// Reserved record fields, owned by the store. Clients can never set these.
const (
	FieldID        = "_id"
	FieldOwnerID   = "_ownerId"
	FieldCreatedOn = "_createdOn"
	FieldUpdatedOn = "_updatedOn"
	FieldDeletedOn = "_deletedOn"
)

// Protected collections
const (
	CollectionUsers    = "users"
	CollectionSessions = "sessions"

	FieldHashedPassword = "hashedPassword"
	FieldAccessToken    = "accessToken"
	FieldUserID         = "userId"
	FieldPassword       = "password"
)

// DefaultIdentityField is the user field used for login when the config
// does not override it.
const DefaultIdentityField = "email"

// File locations and permissions
const (
	ConfigFile = "docbay.yaml"

	DefaultSeedDir           = "data"
	DefaultProtectedSeedPath = "protected.yaml"
	DefaultRulesPath         = "rules.yaml"
	DefaultAuditDBPath       = "audit.db"

	DirPermissions  = 0755
	FilePermissions = 0644
)

// Throttle simulates a slow connection: each data request sleeps for a
// random duration inside this window while the throttle is switched on.
const (
	ThrottleMinMillis = 500
	ThrottleMaxMillis = 1000
)

// TokenSecret keys the HMAC used for password and access-token hashing.
// It is deliberately fixed and unsalted: seeded user records carry hashes
// produced with this exact secret.
const TokenSecret = "This is not a production server"
