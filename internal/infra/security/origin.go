package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidOrigin indicates a state-changing request did not come from the serving origin.
var ErrInvalidOrigin = errors.New("security: invalid origin")

// OriginFallback names the decision taken when a request carries neither Origin nor Referer.
type OriginFallback string

const (
	// OriginFallbackReject refuses header-less requests.
	OriginFallbackReject OriginFallback = "reject"
	// OriginFallbackAuthenticated accepts header-less requests only when they carry a resolved session.
	OriginFallbackAuthenticated OriginFallback = "authenticated"
)

// ParseOriginFallback normalises configuration input, defaulting to OriginFallbackReject.
func ParseOriginFallback(value string) OriginFallback {
	if OriginFallback(strings.ToLower(strings.TrimSpace(value))) == OriginFallbackAuthenticated {
		return OriginFallbackAuthenticated
	}
	return OriginFallbackReject
}

// CheckSameOrigin verifies that Origin, or failing that Referer, names host.
// authenticated reports whether the request already resolved to a session and
// is only consulted by OriginFallbackAuthenticated.
func CheckSameOrigin(headers http.Header, host string, fallback OriginFallback, authenticated bool) error {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidOrigin)
	}

	if origin := strings.TrimSpace(headers.Get("Origin")); origin != "" {
		if !sameHost(origin, host) {
			return fmt.Errorf("%w: origin mismatch", ErrInvalidOrigin)
		}
		return nil
	}

	if referer := strings.TrimSpace(headers.Get("Referer")); referer != "" {
		if !sameHost(referer, host) {
			return fmt.Errorf("%w: referer mismatch", ErrInvalidOrigin)
		}
		return nil
	}

	if fallback == OriginFallbackAuthenticated && authenticated {
		return nil
	}
	return fmt.Errorf("%w: origin and referer absent", ErrInvalidOrigin)
}

func sameHost(rawURL, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.ToLower(parsed.Host) == host
}
