// SPDX-License-Identifier: MIT

package platform

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary. These are the
	// categories the Platform Client contract promises: auth, rate_limited
	// (handled internally and never surfaced unless retries are exhausted),
	// network_transient, not_found, malformed_response.
	ErrAuth             = errors.New("platform: authentication failed")
	ErrRateLimited      = errors.New("platform: rate limited")
	ErrNetworkTransient = errors.New("platform: transient network failure")
	ErrNotFound         = errors.New("platform: resource not found")
	ErrMalformed        = errors.New("platform: malformed response")
)

// Error is a rich error type wrapping one of the sentinels above with
// enough context for logging, without losing errors.Is compatibility.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("platform: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// IsFatal reports whether err should terminate a source's refresh cycle
// entirely: authentication failure or an invalid source id (the remote
// platform has nothing under that id at all, so pagination can never
// succeed). Every other category is item-level and does not abort the
// source's refresh.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound)
}
