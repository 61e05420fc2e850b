// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

// BulkEvents stores an array of events. Invalid events are reported per index
// in the response; the request fails only when nothing could be attempted.
//
// Body: [{"user_id":"u1","created_at":"2025-01-05T10:00:00Z","action":"post",...}]
func (h *Handler) BulkEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var inputs []models.EventInput
	if err := decodeJSONBody(w, r, h.maxBulkBodyBytes, &inputs); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if len(inputs) == 0 {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Request body must be a non-empty array of events", nil)
		return
	}

	result, err := h.svc.IngestEvents(r.Context(), inputs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.SuccessfulEvents == 0 {
		status = http.StatusBadRequest
	}
	respondSuccess(w, status, result, start, false)
}

// EventsSummary describes the stored event history.
func (h *Handler) EventsSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary, start, false)
}
