// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package vcf renders the profile and contact cards as a vCard 3.0 file.
package vcf
