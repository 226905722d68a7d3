/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout is returned (wrapped) when a request is aborted because Config.Timeout expired.
var ErrTimeout = errors.New("request timed out")

// StatusError is returned by GetJSON when the server responds with a non-2xx status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Body contains the beginning of the response body.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// transportError marks errors returned by the underlying transport, they may be retried.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// errRetryableStatus is returned from an attempt that got a 429 or 5xx response.
var errRetryableStatus = errors.New("retryable status code")

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
