package cherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{BadRequestAPI, 400},
		{UnauthorizedChat, 401},
		{ForbiddenChat, 403},
		{RateLimitChat, 429},
		{NotFoundDatabase, 404},
		{BadRequestDatabase, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").StatusCode())
		})
	}
}

func TestPublicMessageHidesDatabaseDetails(t *testing.T) {
	dbErr := Wrap(BadRequestDatabase, "insert failed on chats", errors.New("pq: duplicate key"))
	assert.NotContains(t, dbErr.PublicMessage(), "insert failed")
	assert.NotContains(t, dbErr.PublicMessage(), "pq:")

	apiErr := New(BadRequestAPI, "Only one cursor allowed")
	assert.Equal(t, "Only one cursor allowed", apiErr.PublicMessage())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(BadRequestDatabase, "query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad_request:database")
	assert.Contains(t, err.Error(), "boom")
}

func TestAsExtractsThroughChain(t *testing.T) {
	inner := New(ForbiddenChat, "not yours")
	wrapped := fmt.Errorf("handler: %w", inner)

	ce, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ForbiddenChat, ce.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
