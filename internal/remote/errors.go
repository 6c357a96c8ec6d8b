package remote

import (
	"errors"
	"fmt"
)

// ConnectivityError marks a transport-level failure: the request never
// produced an HTTP response. Actions hitting one stay queued for retry.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// RejectionError marks an application-level refusal: the server answered
// with a non-2xx status. Retrying the same request will not help.
type RejectionError struct {
	StatusCode int
	Body       string
}

func (e *RejectionError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request with status %d: %s", e.StatusCode, e.Body)
}

// IsConnectivity reports whether err stems from a transport failure.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

// IsRejection reports whether the server answered and refused.
func IsRejection(err error) bool {
	var rejErr *RejectionError
	return errors.As(err, &rejErr)
}

// RejectionStatus returns the HTTP status carried by a rejection, or 0.
func RejectionStatus(err error) int {
	var rejErr *RejectionError
	if errors.As(err, &rejErr) {
		return rejErr.StatusCode
	}
	return 0
}
