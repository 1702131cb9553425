// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package snapshot saves the records of a query on request so a later run
// can report what changed. Snapshots are never read back into the caches.
package snapshot
