// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package mapper turns Airtable records into the view models the cards render.
// Decoding and mapping never fail; absent or malformed fields fall back to
// empty values and default titles.
package mapper
