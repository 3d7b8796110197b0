package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeThroughChain(t *testing.T) {
	base := New(CodeConflict, "posting moved on")
	wrapped := fmt.Errorf("file claim: %w", base)

	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(cause, CodeInternal, "failed to load posting")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to load posting", MessageOf(err))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusUnprocessableEntity,
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeInvalidState: http.StatusConflict,
		CodeConflict:     http.StatusConflict,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
