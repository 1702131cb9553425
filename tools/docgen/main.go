// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/command"
	"github.com/staranto/vcardctl/internal/config"
)

// Minimal doc generator. For every subcommand of the CLI it writes:
//   - docs/commands/vcardctl-<cmd>.md from usage, flags and examples
//   - docs/man/share/man1/vcardctl-<cmd>.1 via md2man
//   - docs/tldr/vcardctl-<cmd>.md from the examples

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	mdOutDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(repoRoot, "docs", "tldr")

	for _, d := range []string{mdOutDir, manOutDir, tldrOutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fatalf("creating output dir %s: %v", d, err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"vcardctl"}, config.Env{})
	if err != nil {
		fatalf("building command tree: %v", err)
	}

	var processed int
	for _, cmd := range app.Commands {
		if cmd.Hidden {
			continue
		}
		page := "vcardctl-" + cmd.Name

		md := commandMarkdown(cmd)
		if err := writeFileIfChanged(filepath.Join(mdOutDir, page+".md"), []byte(md), writeOnlyIfChanged); err != nil {
			fatalf("writing markdown for %s: %v", cmd.Name, err)
		}

		if err := writeFileIfChanged(filepath.Join(manOutDir, page+".1"), md2man.Render([]byte(md)), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd.Name, err)
		}

		tldr := buildTLDR(cmd.Name, cmd.Usage, command.Examples(cmd))
		if err := writeFileIfChanged(filepath.Join(tldrOutDir, page+".md"), []byte(tldr), writeOnlyIfChanged); err != nil {
			fatalf("writing TLDR for %s: %v", cmd.Name, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no commands found")
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

// commandMarkdown renders a man-page shaped markdown document for cmd.
func commandMarkdown(cmd *cli.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%% VCARDCTL-%s 1\n\n", strings.ToUpper(cmd.Name))
	fmt.Fprintf(&b, "# NAME\n\nvcardctl-%s - %s\n\n", cmd.Name, cmd.Usage)

	if cmd.UsageText != "" {
		fmt.Fprintf(&b, "# SYNOPSIS\n\n`%s`\n\n", cmd.UsageText)
	}

	var flags []string
	for _, f := range cmd.Flags {
		names := f.Names()
		if len(names) == 0 {
			continue
		}
		parts := make([]string, 0, len(names))
		for _, n := range names {
			if len(n) == 1 {
				parts = append(parts, "**-"+n+"**")
			} else {
				parts = append(parts, "**--"+n+"**")
			}
		}
		line := strings.Join(parts, ", ")
		if df, ok := f.(cli.DocGenerationFlag); ok && df.GetUsage() != "" {
			line += ": " + df.GetUsage()
		}
		flags = append(flags, "- "+line)
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, "# OPTIONS\n\n%s\n\n", strings.Join(flags, "\n"))
	}

	if ex := command.Examples(cmd); len(ex) > 0 {
		b.WriteString("# EXAMPLES\n\n")
		for _, e := range ex {
			fmt.Fprintf(&b, "%s:\n\n    %s\n\n", capitalize(e[1]), sanitizeCommand(e[0]))
		}
	}

	return b.String()
}

func buildTLDR(cmd, short string, exs [][2]string) string {
	var b strings.Builder
	// Header
	b.WriteString("# vcardctl-" + cmd + "\n\n")
	if short != "" {
		b.WriteString("> " + capitalize(short) + ".\n")
	} else {
		b.WriteString("> vcardctl " + cmd + "\n")
	}
	b.WriteString("> More information: https://github.com/staranto/vcardctl.\n\n")

	if len(exs) == 0 {
		// Fallback examples
		b.WriteString("- Show help for the command:\n\n")
		b.WriteString("`vcardctl " + cmd + " --help`\n")
		return b.String()
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + capitalize(strings.TrimSpace(ex[1])) + ":\n\n")
		b.WriteString("`" + sanitizeCommand(ex[0]) + "`\n")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sanitizeCommand(s string) string {
	// Compress runs of whitespace.
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
