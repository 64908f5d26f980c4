package constants

// Audit action types recorded in the audit log.
const (
	AuditActionRecordCreated = "record_created"
	AuditActionRecordUpdated = "record_updated"
	AuditActionRecordDeleted = "record_deleted"
	AuditActionUserRegister  = "user_register"
	AuditActionUserLogin     = "user_login"
	AuditActionUserLogout    = "user_logout"
)

// Audit query limits
const (
	AuditDefaultQueryLimit = 50
	AuditMaxQueryLimit     = 500
)

// ValidAuditActions lists every action the audit logger accepts.
var ValidAuditActions = []string{
	AuditActionRecordCreated,
	AuditActionRecordUpdated,
	AuditActionRecordDeleted,
	AuditActionUserRegister,
	AuditActionUserLogin,
	AuditActionUserLogout,
}
