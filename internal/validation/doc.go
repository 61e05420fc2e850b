// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package validation wraps go-playground/validator v10 with a process-wide
validator and Churnscope-specific tags.

# Custom Tags

  - yearmonth: a "YYYY-MM" period key with a month between 01 and 12

Field names in error messages use the json tag of the field, so a failure on
StartMonth is reported as start_month, matching the request body.

# Usage

	type runRequest struct {
	    StartMonth string `json:"start_month" validate:"required,yearmonth"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    // respond 400 with apiErr.Code / apiErr.Message / apiErr.Details
	}
*/
package validation
