package webhook

import (
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the receiver.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: receiver responded %d %s", e.Code, http.StatusText(e.Code))
}

// DeliveryError is returned when a delivery gives up, either immediately
// on a non-retryable status or after the retry budget is spent. Err is the
// last error observed.
type DeliveryError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook: delivery to %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
