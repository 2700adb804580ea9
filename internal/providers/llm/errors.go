package llm

import "fmt"

// UpstreamError carries enough upstream detail for the boundary layer to
// relay a precise 429 (with Retry-After) versus a generic 5xx.
type UpstreamError struct {
	Provider   string
	Status     int    // last HTTP status, 0 for transport errors
	RetryAfter int    // seconds, 0 when the upstream sent no hint
	Body       string // raw upstream error body
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: upstream request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream rejected the request with 429.
func (e *UpstreamError) RateLimited() bool { return e.Status == 429 }
