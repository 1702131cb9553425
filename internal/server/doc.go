// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package server is the HTTP face of the card service: the layout, each card's
// view model, the vCard, and cache diagnostics.
package server
