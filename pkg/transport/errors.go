package transport

import "fmt"

// HTTPError carries the status code and raw body of a non-2xx response so the
// conversation layer can render a precise failure message.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}
