package delivery

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable means a transcoder or voice encoder is
	// required by the current delivery mode but not configured.
	// Direct-link is not a safe substitute once transcoding was deemed
	// necessary, so the operation aborts instead of degrading.
	ErrCapabilityUnavailable = errors.New("delivery: required transcoding capability not configured")

	// ErrSendFailed wraps a transport failure at send time.
	ErrSendFailed = errors.New("delivery: send failed")
)

// DurationExceededError reports a pre-transfer policy rejection.
type DurationExceededError struct {
	DurationSec int
	LimitSec    int
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("delivery: duration %ds exceeds limit %ds", e.DurationSec, e.LimitSec)
}
