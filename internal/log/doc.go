// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package log configures the apex/log handler used across vcardctl.
package log
