package handlers

import (
	"errors"
	"net/http"

	"github.com/Brownie44l1/acne-api/internal/fetch"
	"github.com/Brownie44l1/acne-api/internal/model"
	"github.com/Brownie44l1/acne-api/internal/preprocess"
)

// requestError is a problem with the request itself. msg is returned to the
// caller verbatim.
type requestError struct {
	msg string
	err error
}

func badRequest(msg string, err error) *requestError {
	return &requestError{msg: msg, err: err}
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

// classifyError maps an error to its HTTP status, a short kind for logs, and
// the detail sent to the caller. Only a non-200 upstream response is a client
// error; transport failures and unrecognized errors are 500 with their text.
func classifyError(err error) (status int, kind, detail string) {
	var (
		reqErr    *requestError
		fetchErr  *fetch.Error
		decodeErr *preprocess.DecodeError
		shapeErr  *model.ShapeError
		inferErr  *model.InferenceError
	)

	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "request", reqErr.msg
	case errors.As(err, &fetchErr) && fetchErr.StatusCode != 0:
		return http.StatusBadRequest, "fetch", "Failed to fetch image: " + fetchErr.Error()
	case errors.As(err, &fetchErr):
		return http.StatusInternalServerError, "transport", fetchErr.Error()
	case errors.As(err, &decodeErr):
		return http.StatusInternalServerError, "decode", decodeErr.Error()
	case errors.As(err, &shapeErr):
		return http.StatusInternalServerError, "shape", shapeErr.Error()
	case errors.As(err, &inferErr):
		return http.StatusInternalServerError, "inference", inferErr.Error()
	default:
		return http.StatusInternalServerError, "internal", err.Error()
	}
}
