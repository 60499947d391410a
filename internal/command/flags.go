// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/config"
)

func init() {
	cfg, _ = config.Load()
}

var (
	cfg config.Type

	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
)

// NewGlobalFlags returns the presentation flags every command carries. Each
// flag falls back to <ns>.<flag> and then <flag> in lbctl.yaml.
func NewGlobalFlags(ns string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LBCTL_OUTPUT"),
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("titles", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
	}

	return
}

// NewInterpreterFlags returns the flags that choose which interpreters a
// command works on.
func NewInterpreterFlags(ns string) []cli.Flag {
	return append([]cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:    "interpreter",
			Aliases: []string{"i"},
			Usage:   "configured interpreter to use, by name",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LBCTL_INTERPRETER"),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		}),
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "site-packages root to use instead of the configured interpreters",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
	}, awsFlags()...)
}

// awsFlags configure the S3 client used for s3:// roots. Both fall back to
// the aws section of lbctl.yaml.
func awsFlags() []cli.Flag {
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile("aws", cfg.Source, &cli.StringFlag{
			Name:  "region",
			Usage: "AWS region for s3:// roots",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_REGION"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile("aws", cfg.Source, &cli.StringFlag{
			Name:  "profile",
			Usage: "AWS shared config profile for s3:// roots",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_PROFILE"),
			),
		}),
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas reports whether target is on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
