package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ward/ward/internal/platform/db"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func TestHTTP(t *testing.T) {
	assert.NoError(t, HTTP(nil, "patient"))

	err := HTTP(Invalid("name is required"), "patient")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Contains(t, err.Error(), "name is required")

	err = HTTP(fmt.Errorf("get patient: %w", db.ErrNotFound), "patient")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Contains(t, err.Error(), "patient not found")

	err = HTTP(errors.Join(db.ErrConflict, errors.New("duplicate key")), "patient")
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	err = HTTP(errors.New("connection refused"), "patient")
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	assert.Equal(t, "internal error", err.(*echo.HTTPError).Message)

	err = HTTP(fmt.Errorf("list: %w", context.DeadlineExceeded), "patient")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalid_IsErrInvalid(t *testing.T) {
	err := fmt.Errorf("create: %w", Invalid("ipd_number is required"))
	assert.ErrorIs(t, err, ErrInvalid)
}
