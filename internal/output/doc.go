// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output filters, sorts and renders record listings and card view
// models as text, json or yaml.
package output
