// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package differ compares two listings of the same table, keyed by record id.
package differ
