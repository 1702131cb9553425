// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package querycache caches Airtable list results per resource. TTLs come from
// each resource's staleness class, writes invalidate every query of the
// written resource, and Query serves the last good value while a refresh is in
// flight.
package querycache
