package port

import "fmt"

// RetryError asks the transport to redeliver a message. Attempt is the
// persisted attempt number that just failed and drives the backoff.
type RetryError struct {
	Attempt int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d): %v", e.Attempt, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
