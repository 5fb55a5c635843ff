package market

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks an upstream HTTP 429. Callers treat it as transient
// and back off until the next poll cycle.
var ErrRateLimited = errors.New("market data source rate limited")

// UpstreamError carries a non-success upstream status. It is considered
// non-retriable by the immediate caller.
type UpstreamError struct {
	Source string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: status %d", e.Source, e.Status)
}

// IsRateLimited reports whether err stems from upstream rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// UpstreamStatus extracts the upstream HTTP status from err, or 0.
func UpstreamStatus(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status
	}
	return 0
}
