// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/churnscope/internal/analysis"
	"github.com/tomtom215/churnscope/internal/models"
	"github.com/tomtom215/churnscope/internal/validation"
)

// History listing bounds.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// RunAnalysis computes, or returns the cached, full churn analysis.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.AnalysisRequest
	if err := decodeJSONBody(w, r, maxAnalysisBodyBytes, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	result, err := h.svc.Run(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start, result.Cached)
}

// Segments returns per-dimension churn for ?start_month&end_month.
func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	startMonth, endMonth, err := monthRange(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	result, err := h.svc.Segments(r.Context(), startMonth, endMonth)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start, result.Cached)
}

// Trends returns month-over-month churn for ?start_month&end_month.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	startMonth, endMonth, err := monthRange(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	result, err := h.svc.Trends(r.Context(), startMonth, endMonth)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start, result.Cached)
}

// Metrics returns the headline metrics for ?month.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	month, err := requireQuery(r, "month")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.monthlyMetrics(w, r, month)
}

// MonthlyReport returns the headline metrics for the {month} path parameter.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	h.monthlyMetrics(w, r, chi.URLParam(r, "month"))
}

func (h *Handler) monthlyMetrics(w http.ResponseWriter, r *http.Request, month string) {
	start := time.Now()

	result, err := h.svc.Metrics(r.Context(), month)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start, result.Cached)
}

// History lists persisted analysis runs, newest first, bounded by ?limit.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := getIntParam(r, "limit", defaultHistoryLimit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if limit < 1 || limit > maxHistoryLimit {
		respondServiceError(w, r, validation.NewRequestValidationError("limit", "range",
			"limit must be between 1 and 500", limit))
		return
	}

	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, runs, start, false)
}

// InactiveUsers lists users inactive for more than ?days as of ?reference_date.
func (h *Handler) InactiveUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	days, err := getIntParam(r, "days", 0)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	limit, err := getIntParam(r, "limit", analysis.DefaultInactiveLimit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	ref, err := getTimeParam(r, "reference_date")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	result, err := h.svc.InactiveUsers(r.Context(), days, limit, ref)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start, false)
}

// ClearCache drops every cached analysis and view.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	n, err := h.svc.ClearCache(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "Failed to clear cache", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int{"invalidated_keys": n}, start, false)
}

// monthRange reads the required start_month and end_month query parameters.
func monthRange(r *http.Request) (string, string, error) {
	startMonth, err := requireQuery(r, "start_month")
	if err != nil {
		return "", "", err
	}
	endMonth, err := requireQuery(r, "end_month")
	if err != nil {
		return "", "", err
	}
	return startMonth, endMonth, nil
}
