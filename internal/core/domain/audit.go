package domain

import "time"

// AuditAction names a security-relevant action recorded in the audit log.
type AuditAction string

const (
	AuditActionLoginSucceeded  AuditAction = "login.succeeded"
	AuditActionLoginFailed     AuditAction = "login.failed"
	AuditActionLoginLocked     AuditAction = "login.locked"
	AuditActionLogout          AuditAction = "logout"
	AuditActionUnblock         AuditAction = "lockout.unblocked"
	AuditActionSessionsRevoked AuditAction = "sessions.revoked"
)

// AuditEntry is one append-only audit log record.
type AuditEntry struct {
	ID        string
	Action    AuditAction
	Email     string
	IP        string
	UserAgent string
	Detail    string
	CreatedAt time.Time
}
