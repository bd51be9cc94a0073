package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeValidation, CodeOf(Validationf("bad input")))
	require.Equal(t, CodeNotFound, CodeOf(NotFoundf("missing")))
	require.Equal(t, CodeConflict, CodeOf(Conflictf("duplicate")))
	require.Equal(t, CodeInternal, CodeOf(errors.New("raw")))

	// wrapped errors still classify
	wrapped := fmt.Errorf("while saving: %w", Conflictf("duplicate"))
	require.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := Internal(cause)

	require.Equal(t, "internal error", MessageOf(err))
	require.Contains(t, err.Error(), "connection reset")
	require.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(Validationf("x")))
	require.Equal(t, http.StatusNotFound, HTTPStatus(NotFoundf("x")))
	require.Equal(t, http.StatusConflict, HTTPStatus(Conflictf("x")))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}
