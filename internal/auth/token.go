// SPDX-License-Identifier: MIT

// Package auth implements bearer-token authentication for the admin HTTP
// surface: a single static operator token, not a user-session system.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ExtractToken retrieves the admin token from a request. Supports the
// Authorization: Bearer header and the legacy X-API-Token header for
// operators migrating scripts that predate it.
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}
	return ""
}

// AuthorizeToken reports whether got matches expected, using a
// constant-time comparison so response latency can't leak how many
// leading bytes matched. An empty expected token always rejects — there is
// no "auth disabled" state via an empty string.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a token from r and validates it against expected.
func AuthorizeRequest(r *http.Request, expected string) bool {
	if r == nil {
		return false
	}
	return AuthorizeToken(ExtractToken(r), expected)
}
