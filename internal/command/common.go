// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/aws"
	"github.com/staranto/lbctl/internal/cacheutil"
	"github.com/staranto/lbctl/internal/config"
	"github.com/staranto/lbctl/internal/interp"
	"github.com/staranto/lbctl/internal/meta"
	"github.com/staranto/lbctl/internal/notify"
	"github.com/staranto/lbctl/internal/session"
	"github.com/staranto/lbctl/internal/vfs"
	"github.com/staranto/lbctl/internal/watcher"
)

// DefaultInterpreterName names the interpreter built from --root.
const DefaultInterpreterName = "default"

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr lbctl-<subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "lbctl-"+subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// stdout is where command output goes. Tests swap the root Writer.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// SelectInterpreters resolves the interpreters a command works on. --root
// wins over the config file; --interpreter narrows the configured list.
func SelectInterpreters(cmd *cli.Command) ([]interp.Interpreter, error) {
	name := cmd.String("interpreter")

	if root := cmd.String("root"); root != "" {
		if name == "" {
			name = DefaultInterpreterName
		}
		i := interp.New(name, root)
		i.Region = cmd.String("region")
		return []interp.Interpreter{i}, nil
	}

	interps, err := config.Interpreters()
	if err != nil {
		return nil, fmt.Errorf("failed to read interpreters: %w", err)
	}
	if len(interps) == 0 {
		return nil, errors.New("no interpreters configured; add interpreters to lbctl.yaml or pass --root")
	}

	if name == "" {
		return interps, nil
	}
	for _, i := range interps {
		if i.Name == name {
			return []interp.Interpreter{i}, nil
		}
	}
	return nil, fmt.Errorf("interpreter not found: %s", name)
}

// NewFS returns the filesystem the interpreters are read through. An S3
// client is only built when some root lives in a bucket.
func NewFS(ctx context.Context, cmd *cli.Command, interps []interp.Interpreter) (vfs.FS, error) {
	region := cmd.String("region")
	remote := false
	for _, i := range interps {
		if !i.Remote() {
			continue
		}
		remote = true
		if region == "" {
			region = i.Region
		}
	}
	if !remote {
		return vfs.OS{}, nil
	}

	attempts, _ := config.GetInt("aws.max_attempts", aws.DefaultMaxAttempts)
	client, err := aws.NewS3Client(ctx, aws.Settings{
		Region:      region,
		Profile:     cmd.String("profile"),
		MaxAttempts: attempts,
	})
	if err != nil {
		return nil, err
	}

	var remoteFS vfs.FS = vfs.NewS3(client)
	if cacheutil.Enabled() {
		remoteFS = vfs.Cached{FS: remoteFS, Store: cacheutil.Store{Subdirs: []string{"s3"}}}
	}
	return vfs.Router{Local: vfs.OS{}, Remote: remoteFS}, nil
}

// ConsoleNotifier prints notifications on w, one per line.
func ConsoleNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(sev notify.Severity, msg string) {
		fmt.Fprintf(w, "%s: %s\n", sev, msg)
	})
}

// NewSession builds a session over interps with notifications going to the
// console and the log.
func NewSession(ctx context.Context, cmd *cli.Command, interps []interp.Interpreter) (*session.Session, error) {
	fsys, err := NewFS(ctx, cmd, interps)
	if err != nil {
		return nil, err
	}

	debounce, err := config.GetDuration("watch.debounce", watcher.DefaultDebounce)
	if err != nil {
		return nil, err
	}
	parallel, _ := config.GetInt("parallel", session.DefaultParallelism)

	return session.New(interps,
		session.WithFS(fsys),
		session.WithNotifier(notify.Multi{notify.Log{}, ConsoleNotifier(stderr(cmd))}),
		session.WithDebounce(debounce),
		session.WithParallelism(parallel),
	), nil
}

// CommandBuilder constructs a cli.Command for a subcommand using a
// consistent pattern. It wires metadata, adds tldr and global flags, and
// sets up validators.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	ArgsUsage string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, cb.Flags...)
	flags = append(flags, tldrFlag)
	flags = append(flags, NewGlobalFlags(cb.Name)...)

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		ArgsUsage: cb.ArgsUsage,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			config.Config.Namespace = cb.Name
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			m := GetMeta(c)
			log.Debugf("Executing action for %v", m.Args)

			// Bail out early if we're just dumping tldr.
			if ShortCircuitTLDR(ctx, c, cb.Name) {
				return nil
			}
			return cb.Action(ctx, c)
		},
	}
}
