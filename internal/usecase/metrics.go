package usecase

// Login outcomes reported to the SecurityRecorder.
const (
	LoginOutcomeSuccess   = "success"
	LoginOutcomeInvalid   = "invalid"
	LoginOutcomeLocked    = "locked"
	LoginOutcomeMalformed = "malformed"
)

// SecurityRecorder receives security counters. telemetry.SecurityMetrics implements it.
type SecurityRecorder interface {
	LoginAttempt(outcome string)
	LockoutCreated()
	LockoutCleared()
	SessionsRevoked()
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string) {}
func (nopRecorder) LockoutCreated()     {}
func (nopRecorder) LockoutCleared()     {}
func (nopRecorder) SessionsRevoked()    {}
