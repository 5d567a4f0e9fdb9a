// Package httpjson centralizes JSON response writing and the mapping from
// the rental error taxonomy to HTTP status codes, shared by every domain
// handler.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

const (
	problemTypeValidation = "https://vdgsa.org/problems/validation-error"
	problemTypeNotFound   = "https://vdgsa.org/problems/not-found"
	problemTypeConflict   = "https://vdgsa.org/problems/conflict"
	problemTypeState      = "https://vdgsa.org/problems/invalid-state"
	problemTypeInternal   = "https://vdgsa.org/problems/internal-error"
)

// Problem is an RFC 7807 style error body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ClassifyError maps a domain error to its HTTP status and problem body.
func ClassifyError(err error) (int, Problem) {
	var (
		validation *lifecycle.ValidationError
		transition *lifecycle.InvalidTransitionError
		mismatch   *lifecycle.SizeMismatchError
		state      *lifecycle.InvalidStateError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, Problem{
			Type: problemTypeValidation, Title: "Validation failed",
			Status: http.StatusBadRequest, Detail: validation.Error(),
		}
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound, Problem{
			Type: problemTypeNotFound, Title: "Resource not found",
			Status: http.StatusNotFound,
		}
	case errors.As(err, &transition):
		return http.StatusConflict, Problem{
			Type: problemTypeConflict, Title: "Illegal status change",
			Status: http.StatusConflict, Detail: transition.Error(),
		}
	case errors.Is(err, lifecycle.ErrConflict):
		return http.StatusConflict, Problem{
			Type: problemTypeConflict, Title: "Conflict",
			Status: http.StatusConflict, Detail: "the item was modified concurrently; retry",
		}
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, Problem{
			Type: problemTypeState, Title: "Size mismatch",
			Status: http.StatusUnprocessableEntity, Detail: mismatch.Error(),
		}
	case errors.As(err, &state):
		return http.StatusUnprocessableEntity, Problem{
			Type: problemTypeState, Title: "Invalid state for operation",
			Status: http.StatusUnprocessableEntity, Detail: state.Error(),
		}
	default:
		return http.StatusInternalServerError, Problem{
			Type: problemTypeInternal, Title: "Internal server error",
			Status: http.StatusInternalServerError,
		}
	}
}

// WriteError classifies err, logs server-side failures, and writes the
// problem body.
func WriteError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, problem := ClassifyError(err)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("rental operation failed", fields...)
	case status == http.StatusNotFound:
		logger.Info("rental resource not found", fields...)
	default:
		logger.Warn("rental request rejected", fields...)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// DecodeBody decodes a JSON request body into dst, rejecting unknown
// fields.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &lifecycle.ValidationError{Field: "body", Msg: "invalid JSON request body"}
	}
	return nil
}
