// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

// docgen turns docs/commands/<cmd>.md into
//   - docs/man/share/man1/lbctl-<cmd>.1 via md2man
//   - docs/tldr/lbctl-<cmd>.md from the short description and quick examples

const moreInfo = "https://github.com/staranto/lbctl"

func main() {
	var (
		repoRoot      string
		onlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root")
	flag.BoolVar(&onlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	n, err := generate(repoRoot, onlyIfChanged)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("generated docs for %d commands\n", n)
}

// generate renders every command page under root and returns how many it
// processed.
func generate(root string, onlyIfChanged bool) (int, error) {
	commandsDir := filepath.Join(root, "docs", "commands")
	manOutDir := filepath.Join(root, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(root, "docs", "tldr")

	for _, d := range []string{manOutDir, tldrOutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return 0, fmt.Errorf("creating %s: %w", d, err)
		}
	}

	entries, err := os.ReadDir(commandsDir)
	if err != nil {
		return 0, fmt.Errorf("reading commands dir %s: %w", commandsDir, err)
	}

	var processed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cmd := strings.TrimSuffix(e.Name(), ".md")
		raw, err := os.ReadFile(filepath.Join(commandsDir, e.Name()))
		if err != nil {
			return processed, err
		}

		manPath := filepath.Join(manOutDir, fmt.Sprintf("lbctl-%s.1", cmd))
		if err := writeFileIfChanged(manPath, md2man.Render(raw), onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing man page for %s: %w", cmd, err)
		}

		page := string(raw)
		tldr := buildTLDR(cmd, shortDescription(page), quickExamples(page))
		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("lbctl-%s.md", cmd))
		if err := writeFileIfChanged(tldrPath, []byte(tldr), onlyIfChanged); err != nil {
			return processed, fmt.Errorf("writing tldr page for %s: %w", cmd, err)
		}

		processed++
	}

	if processed == 0 {
		return 0, fmt.Errorf("no command markdown found under %s", commandsDir)
	}
	return processed, nil
}

func writeFileIfChanged(path string, data []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		switch {
		case err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(data)):
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

var (
	h1Re      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	sectionRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

// section returns the body of the "## name" section, or "".
func section(md, name string) string {
	locs := sectionRe.FindAllStringSubmatchIndex(md, -1)
	for i, loc := range locs {
		if !strings.EqualFold(strings.TrimSpace(md[loc[2]:loc[3]]), name) {
			continue
		}
		end := len(md)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		return md[loc[1]:end]
	}
	return ""
}

// shortDescription is the first paragraph of "Short description", falling
// back to the page title.
func shortDescription(md string) string {
	var b strings.Builder
	for _, ln := range strings.Split(section(md, "Short description"), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if b.Len() > 0 {
				break
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ln)
	}
	if b.Len() > 0 {
		return b.String()
	}
	if m := h1Re.FindStringSubmatch(md); m != nil {
		return strings.TrimSpace(m[1]) + "."
	}
	return ""
}

type example struct {
	Desc string
	Cmd  string
}

// quickExamples reads the first fenced block of "Quick examples". A "#"
// comment line describes the command line that follows it.
func quickExamples(md string) []example {
	body := section(md, "Quick examples")
	start := strings.Index(body, "```")
	if start < 0 {
		return nil
	}
	body = body[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	var (
		exs  []example
		desc string
	)
	for _, ln := range strings.Split(body, "\n") {
		s := strings.TrimSpace(ln)
		switch {
		case s == "":
		case strings.HasPrefix(s, "#"):
			desc = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			exs = append(exs, example{Desc: desc, Cmd: strings.Join(strings.Fields(s), " ")})
			desc = ""
		}
	}
	return exs
}

func buildTLDR(cmd, short string, exs []example) string {
	var b strings.Builder
	b.WriteString("# lbctl-" + cmd + "\n\n")
	if short == "" {
		short = "lbctl " + cmd
	}
	b.WriteString("> " + short + "\n")
	b.WriteString("> More information: " + moreInfo + ".\n\n")

	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: "lbctl " + cmd + " --help"}}
	}
	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ex.Desc + ":\n\n")
		b.WriteString("`" + ex.Cmd + "`\n")
	}
	return b.String()
}
