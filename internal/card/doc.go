// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package card exposes the content of each card as a State: the mapped view
// model plus whether it is loading, stale or failed. Reads go through the
// shared query cache; writes invalidate the resource they touch.
package card
