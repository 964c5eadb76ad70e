package extract

import "fmt"

// StatusError is a non-2xx response. 400 and 404 mean a misconfigured path
// or bad parameters and must never be retried; the Retryable flag tells a
// caller that layers retries around Extract which failures are worth it.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received %d for URL: %s", e.Code, e.URL)
}

// Retryable reports whether the failure is plausibly transient.
func (e *StatusError) Retryable() bool {
	switch {
	case e.Code == 400 || e.Code == 404:
		return false
	case e.Code == 429:
		return true
	case e.Code >= 500:
		return true
	}
	return false
}
