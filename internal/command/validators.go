// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/output"
)

// GlobalFlagsValidator rejects combinations the global flags cannot honor.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.String("region") != "" && c.String("root") != "" && !strings.HasPrefix(c.String("root"), "s3://") {
		return errors.New("--region only applies to s3:// roots")
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
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func PositiveIntValidator(value any) error {
	if value.(int) < 1 {
		return errors.New("must be 1 or greater")
	}
	return nil
}
