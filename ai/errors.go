// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDisabled is returned when no endpoint or model is configured.
var ErrDisabled = errors.New("ai endpoint not configured")

// TransientError is a failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// FatalError is a failure that retrying will not fix.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

func transient(err error) error { return &TransientError{err: err} }
func fatal(err error) error     { return &FatalError{err: err} }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsFatal reports whether err is permanent.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// classifyHTTPError maps a non-200 status to a transient or fatal error.
func classifyHTTPError(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	err := fmt.Errorf("ai api error (status %d): %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return transient(err)
	default:
		return fatal(err)
	}
}
