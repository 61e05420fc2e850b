// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/churnscope/internal/logging"
)

// ErrSnapshotTooLarge is returned when a load exceeds DatabaseConfig.MaxEventsPerLoad.
var ErrSnapshotTooLarge = errors.New("event snapshot exceeds configured limit")

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource in an error path where the close error is not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
