// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package reqcache deduplicates concurrent identical reads. Each key holds the
// pending or settled result of one producer call for a TTL; failures are
// dropped at once so the next caller retries.
package reqcache
