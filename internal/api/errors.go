// Package api is the HTTP surface: JSON handlers over the pipeline and the
// catalog, plus middleware.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/catalog"
	"github.com/chazu/whitedwarf/pkg/inference"
	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/pipeline"
)

// Error is an HTTP error response. Detail is what the client sees; Cause
// is only logged.
type Error struct {
	Status int
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// errorBody is the envelope clients already parse.
type errorBody struct {
	Detail string `json:"detail"`
}

// classify maps a stage error to a response. op prefixes generic 5xx
// details, e.g. "Export failed".
func classify(err error, op string) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	status := http.StatusInternalServerError
	detail := fmt.Sprintf("%s failed", op)
	switch {
	case errors.Is(err, kernel.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		status, detail = http.StatusNotFound, err.Error()
	case errors.Is(err, kernel.ErrUnsupportedGeometry), errors.Is(err, pipeline.ErrInvalidInput):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, kernel.ErrDegenerateGeometry):
		status, detail = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, inference.ErrNotConfigured):
		status, detail = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, inference.ErrJobTimeout):
		status, detail = http.StatusGatewayTimeout, fmt.Sprintf("%s failed: model timed out", op)
	case errors.Is(err, inference.ErrJobFailed):
		status, detail = http.StatusBadGateway, fmt.Sprintf("%s failed: %v", op, err)
	case errors.Is(err, context.Canceled):
		// 499 is the de facto status for a client that went away.
		status, detail = 499, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		status, detail = http.StatusGatewayTimeout, fmt.Sprintf("%s timed out", op)
	}
	return &Error{Status: status, Detail: detail, Cause: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs at error level for 5xx and warn otherwise.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, e *Error) {
	fields := []zap.Field{
		zap.Int("status", e.Status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("detail", e.Detail),
		zap.Error(e.Cause),
	}
	if e.Status >= 500 {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}
	writeJSON(w, e.Status, errorBody{Detail: e.Detail})
}
