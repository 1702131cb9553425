// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/attrs"
	"github.com/staranto/vcardctl/internal/output"
)

// GlobalFlagsValidator rejects an --attrs value that does not parse, before
// anything is fetched.
func GlobalFlagsValidator(_ context.Context, c *cli.Command) error {
	if !c.IsSet("attrs") {
		return nil
	}
	var al attrs.AttrList
	if err := al.Set(c.String("attrs")); err != nil {
		return fmt.Errorf("--attrs: %w", err)
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if s, _ := value.(string); strings.HasPrefix(s, "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

var validOutputFlagValues = []string{output.FormatText, output.FormatJSON, output.FormatRaw, output.FormatYAML}

func OutputValidator(value any) error {
	s, _ := value.(string)
	if !slices.Contains(validOutputFlagValues, s) {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

// AddrValidator accepts host:port listen addresses such as ":8080".
func AddrValidator(value any) error {
	s, _ := value.(string)
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s, err)
	}
	return nil
}

// ArgCountValidator returns an error unless cmd got between minArgs and
// maxArgs positional args. A negative maxArgs means no upper bound.
func ArgCountValidator(cmd *cli.Command, minArgs, maxArgs int) error {
	n := cmd.Args().Len()
	if n < minArgs {
		return fmt.Errorf("%s: missing arguments, usage: %s", cmd.Name, cmd.UsageText)
	}
	if maxArgs >= 0 && n > maxArgs {
		return fmt.Errorf("%s: too many arguments, usage: %s", cmd.Name, cmd.UsageText)
	}
	return nil
}
