package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Identities *IdentityRepository
	Lockouts   *LockoutRepository
	Audit      *AuditLogRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool pgPool) *Repositories {
	return &Repositories{
		Identities: NewIdentityRepository(pool),
		Lockouts:   NewLockoutRepository(pool),
		Audit:      NewAuditLogRepository(pool),
	}
}
