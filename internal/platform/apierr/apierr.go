// Package apierr maps service and repository errors onto HTTP responses.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ward/ward/internal/platform/db"
)

// ErrInvalid matches every error built with Invalid.
var ErrInvalid = errors.New("invalid input")

type invalidError struct{ msg string }

func (e *invalidError) Error() string        { return e.msg }
func (e *invalidError) Is(target error) bool { return target == ErrInvalid }

// Invalid returns a validation error. Its message is shown to the client.
func Invalid(format string, args ...interface{}) error {
	return &invalidError{msg: fmt.Sprintf(format, args...)}
}

// HTTP converts err into an *echo.HTTPError. resource names the entity in
// 404 and 409 messages. Unclassified errors become a generic 500 with the
// cause attached for the request logger. Context deadline errors pass
// through so the timeout middleware can answer 504.
func HTTP(err error, resource string) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, resource+" not found")
	case errors.Is(err, db.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, resource+" conflicts with an existing record").SetInternal(err)
	case errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}
