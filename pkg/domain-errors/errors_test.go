package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Messages(t *testing.T) {
	plain := New(CodeNotFound, "contact not found")
	assert.Equal(t, "not_found: contact not found", plain.Error())

	wrapped := Wrap(errors.New("connection refused"), CodeInternal, "match contacts")
	assert.Equal(t, "internal_error: match contacts: connection refused", wrapped.Error())
}

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := New(CodeNotFound, "contact not found")

	wrapped := fmt.Errorf("delete: %w", Wrap(sentinel, CodeNotFound, "lookup"))
	assert.True(t, errors.Is(wrapped, sentinel), "same code matches through wrapping")

	assert.False(t, errors.Is(New(CodeConflict, "contact not found"), sentinel),
		"different code does not match even with the same message")
	assert.False(t, errors.Is(errors.New("contact not found"), sentinel))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(cause, CodeInternal, "match contacts")
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "email required")))
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("outer: %w", New(CodeNotFound, "gone"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("unclassified")))
}

func TestMessageOf_HidesUnclassifiedDetail(t *testing.T) {
	assert.Equal(t, "email required", MessageOf(New(CodeValidation, "email required")))
	assert.Equal(t, "internal error", MessageOf(errors.New("dsn=postgres://user:secret@db")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation: http.StatusBadRequest,
		CodeBadRequest: http.StatusBadRequest,
		CodeNotFound:   http.StatusNotFound,
		CodeConflict:   http.StatusConflict,
		CodeTimeout:    http.StatusGatewayTimeout,
		CodeInternal:   http.StatusInternalServerError,
		Code("novel"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
