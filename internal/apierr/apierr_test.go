package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-message-backend/internal/errcodes"
)

func TestDescriptions(t *testing.T) {
	field := "content"
	cases := []struct {
		name string
		err  Error
		desc string
		msg  string
	}{
		{"not found", NotFound{}, "Message not found", "Message not found"},
		{"bad request", BadRequest{Message: "boom", Code: 4000}, "Invalid input: boom", "Invalid input: boom"},
		{"internal bare", InternalServerError{}, "Internal server error", "Internal server error"},
		{"internal cause", InternalServerError{Cause: errors.New("db down")}, "Internal server error", "Internal server error: db down"},
		{"code", CodeError{Code: errcodes.NotNull}, "error code NotNull", "error code NotNull"},
		{"multiple", MultipleErrors{Codes: []errcodes.ErrorCode{errcodes.NotEmpty}, Field: &field}, "Multiple errors occurred", `Multiple errors occurred on "content": [NotEmpty]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.desc, tc.err.Description())
			assert.Equal(t, tc.msg, tc.err.Error())
		})
	}
}

func TestInternalServerError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewInternal(cause)
	assert.ErrorIs(t, err, cause)
}

func TestAs_FollowsWrapChain(t *testing.T) {
	wrapped := fmt.Errorf("create message: %w", NewCode(errcodes.MaxSize))
	e, ok := As(wrapped)
	require.True(t, ok)
	ce, ok := e.(CodeError)
	require.True(t, ok)
	assert.Equal(t, errcodes.MaxSize, ce.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)

	_, ok = As(nil)
	assert.False(t, ok)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, BadRequest{Message: "m", Code: 7}, NewBadRequest("m", 7))
	assert.Equal(t, NotFound{}, NewNotFound())
	assert.Equal(t, CodeError{Code: errcodes.InvalidToken}, NewCode(errcodes.InvalidToken))
}
