// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/churnscope/internal/analysis"
	"github.com/tomtom215/churnscope/internal/churn"
	"github.com/tomtom215/churnscope/internal/database"
	"github.com/tomtom215/churnscope/internal/validation"
)

// Error codes of the API error envelope.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeValidationFailed  = validation.CodeValidationFailed
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeTimeout           = "TIMEOUT"
)

var (
	errMalformedBody = errors.New("malformed request body")
	errBodyTooLarge  = errors.New("request body too large")
)

// respondServiceError maps an error from the analysis layer to an HTTP response.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondValidationError(w, verr)
	case errors.Is(err, churn.ErrInvalidRange):
		respondErrorDetails(w, http.StatusBadRequest, CodeValidationFailed, err.Error(),
			map[string]interface{}{"field": "end_month"}, nil)
	case errors.Is(err, analysis.ErrRangeTooLarge):
		respondError(w, http.StatusBadRequest, CodeValidationFailed, err.Error(), nil)
	case errors.Is(err, analysis.ErrTooManyEvents), errors.Is(err, errBodyTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, err.Error(), nil)
	case errors.Is(err, errMalformedBody):
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
	case errors.Is(err, database.ErrSnapshotTooLarge):
		respondError(w, http.StatusUnprocessableEntity, CodeValidationFailed,
			"Too many events in the requested range; narrow the range or raise the snapshot limit", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, CodeTimeout, "Request timed out", err)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing useful can be written.
		logCanceled(r, err)
	default:
		respondError(w, http.StatusInternalServerError, CodeDatabaseError, "Failed to read or write the event store", err)
	}
}
