package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RemoteError is returned for every failed backend call. StatusCode is 0
// when the request never produced an HTTP response.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: backend unreachable: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsNotFound reports whether the resource or route does not exist. Both
// 404 and 405 count: a missing search route surfaces as either.
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusMethodNotAllowed
}

// IsConnectivity reports a transport-level failure.
func (e *RemoteError) IsConnectivity() bool {
	return e.StatusCode == 0
}

// IsConnectivity reports whether err is a *RemoteError caused by transport failure.
func IsConnectivity(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.IsConnectivity()
}

// IsNotFound reports whether err is a *RemoteError for a missing resource or route.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.IsNotFound()
}

// parseErrorResponse builds a RemoteError from a non-2xx response, preferring
// the backend's own message.
func parseErrorResponse(op string, statusCode int, body []byte) *RemoteError {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := env.errorMessage(); msg != "" {
			return &RemoteError{Op: op, StatusCode: statusCode, Message: msg}
		}
	}
	return &RemoteError{
		Op:         op,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP error! status: %d", statusCode),
	}
}

func transportError(op string, err error) *RemoteError {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		msg = msg[i+2:]
	}
	return &RemoteError{Op: op, Message: msg, Err: err}
}
