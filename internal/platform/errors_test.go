// SPDX-License-Identifier: MIT

package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapMatchesSentinel(t *testing.T) {
	err := &Error{Sentinel: ErrAuth, Operation: "favorite.list", Status: 401}
	assert.True(t, errors.Is(err, ErrAuth))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestIsFatal_AuthAndNotFoundAreFatal(t *testing.T) {
	assert.True(t, IsFatal(&Error{Sentinel: ErrAuth}))
	assert.True(t, IsFatal(&Error{Sentinel: ErrNotFound}))
	assert.False(t, IsFatal(&Error{Sentinel: ErrRateLimited}))
	assert.False(t, IsFatal(&Error{Sentinel: ErrNetworkTransient}))
	assert.False(t, IsFatal(&Error{Sentinel: ErrMalformed}))
	assert.False(t, IsFatal(nil))
}

func TestError_MessageIncludesOperationAndStatus(t *testing.T) {
	err := &Error{Sentinel: ErrNotFound, Operation: "favorite.list", Status: 404}
	assert.Contains(t, err.Error(), "favorite.list")
	assert.Contains(t, err.Error(), "404")
}
