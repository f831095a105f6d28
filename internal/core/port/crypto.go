package port

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicy validates a candidate password before it is hashed.
type PasswordPolicy interface {
	Validate(password string) error
}
