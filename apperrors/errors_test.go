package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidation("bad input"), http.StatusBadRequest},
		{NewNotFound("session missing"), http.StatusNotFound},
		{WrapTransport("timeout", errors.New("dial tcp: timeout")), http.StatusInternalServerError},
		{WrapWorker("worker failed", nil), http.StatusInternalServerError},
		{WrapStorage("cache down", nil), http.StatusInternalServerError},
		{WrapConfig("missing key", nil), http.StatusInternalServerError},
		{errors.New("unrelated error"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapStorage("writing session backup", cause)
	require.ErrorIs(t, err, cause)
}

func TestValidationfFormatsMessage(t *testing.T) {
	err := NewValidationf("dataset path not found: %s", "/tmp/missing")
	require.Contains(t, err.Error(), "/tmp/missing")
}
