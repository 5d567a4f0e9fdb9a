package lifecycle

// WaitlistStatus is the lifecycle state of a waiting-list entry.
// Fulfilled and cancelled are absorbing.
type WaitlistStatus string

const (
	WaitlistOpen      WaitlistStatus = "open"
	WaitlistFulfilled WaitlistStatus = "fulfilled"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

// ParseWaitlistStatus validates a wire-format waitlist status string.
func ParseWaitlistStatus(s string) (WaitlistStatus, error) {
	switch WaitlistStatus(s) {
	case WaitlistOpen, WaitlistFulfilled, WaitlistCancelled:
		return WaitlistStatus(s), nil
	}
	return "", &ValidationError{Field: "status", Msg: "unknown waitlist status " + s}
}
