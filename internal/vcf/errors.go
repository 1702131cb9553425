// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package vcf

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingName is returned when the profile loaded but has no name to put
	// on the card.
	ErrMissingName = errors.New("profile has no name")
	// ErrProfileUnavailable is returned when the profile could not be read.
	ErrProfileUnavailable = errors.New("profile is unavailable")
)

// ErrNoName explains a card without a name. A load failure wraps
// ErrProfileUnavailable and the cause, otherwise the result is ErrMissingName.
func ErrNoName(cause error) error {
	if cause == nil {
		return ErrMissingName
	}
	return fmt.Errorf("%w: %w", ErrProfileUnavailable, cause)
}
