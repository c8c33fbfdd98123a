package backend

import (
	"encoding/json"
	"fmt"
)

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
}

// Temporary reports whether retrying the same call may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// ResponseError indicates a reply whose body does not have the expected
// shape.
type ResponseError struct {
	Op      string
	Content json.RawMessage
	Err     error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }
