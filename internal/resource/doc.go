// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package resource names the Airtable-backed collections that feed the card
// and assigns each one a staleness class governing how long it is cached.
package resource
