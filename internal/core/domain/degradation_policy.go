package domain

import "strings"

// DegradationPolicyMode selects what the rate limiter does when its shared
// backend cannot answer.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient lets every request through (fail-open).
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects every request (fail-closed).
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
	// DegradationPolicyModeSelective rejects protected operations and lets
	// the rest through.
	DegradationPolicyModeSelective DegradationPolicyMode = "selective"
)

// DegradationReason captures why a fallback decision is evaluated.
type DegradationReason string

const (
	// DegradationReasonLimiterUnavailable denotes the backend returned an error or timed out.
	DegradationReasonLimiterUnavailable DegradationReason = "limiter_unavailable"
	// DegradationReasonCircuitOpen denotes the circuit breaker short-circuited the call.
	DegradationReasonCircuitOpen DegradationReason = "circuit_open"
)

// DegradationPolicy is the fail-open/fail-closed decision for the rate limiter.
type DegradationPolicy struct {
	mode      DegradationPolicyMode
	protected map[string]struct{}
}

// NewDegradationPolicy builds a policy. protected names the operations the
// selective mode fails closed for; other modes ignore it. Unknown modes are lenient.
func NewDegradationPolicy(mode DegradationPolicyMode, protected ...string) DegradationPolicy {
	switch mode {
	case DegradationPolicyModeStrict, DegradationPolicyModeSelective:
	default:
		mode = DegradationPolicyModeLenient
	}

	p := DegradationPolicy{mode: mode, protected: make(map[string]struct{}, len(protected))}
	for _, op := range protected {
		p.protected[op] = struct{}{}
	}
	return p
}

// ParseDegradationPolicyMode normalises configuration input.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch mode := DegradationPolicyMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case DegradationPolicyModeStrict, DegradationPolicyModeSelective:
		return mode
	default:
		return DegradationPolicyModeLenient
	}
}

func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// AllowsFallback reports whether a request for operation may proceed without
// a limiter answer.
func (p DegradationPolicy) AllowsFallback(operation string, _ DegradationReason) bool {
	switch p.mode {
	case DegradationPolicyModeStrict:
		return false
	case DegradationPolicyModeSelective:
		_, protected := p.protected[operation]
		return !protected
	default:
		return true
	}
}
