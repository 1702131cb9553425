// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package driller extracts values from Airtable record JSON by dotted path.
package driller
