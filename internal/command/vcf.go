// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/vcf"
)

func vcfOptions(cmd *cli.Command) []vcf.Option {
	if cmd.Bool("enhanced") {
		return []vcf.Option{vcf.WithEnhanced()}
	}
	return nil
}

// vcfPath resolves --file. A directory gets the slug of the name.
func vcfPath(m meta.Meta, file string, d vcf.Data) string {
	if !filepath.IsAbs(file) && m.StartingDir != "" {
		file = filepath.Join(m.StartingDir, file)
	}
	if fi, err := os.Stat(file); err == nil && fi.IsDir() {
		file = filepath.Join(file, vcf.FileName(d)+".vcf")
	}
	return file
}

func VcfCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	svc, _ := NewService(m)

	d, err := vcf.Load(ctx, svc)
	if err != nil {
		return err
	}

	file := cmd.String("file")
	if file == "" || file == "-" {
		return vcf.Write(out(cmd), d, vcfOptions(cmd)...)
	}

	path := vcfPath(m, file, d)
	if err := os.WriteFile(path, []byte(vcf.Generate(d, vcfOptions(cmd)...)), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Infof("wrote %s", path)
	fmt.Fprintln(out(cmd), path)
	return nil
}

func VcfCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "vcf",
		Usage:     "export the card as a vCard",
		UsageText: `vcardctl vcf [--file PATH] [--enhanced]`,
		Examples: [][2]string{
			{`vcardctl vcf`, "print the vCard"},
			{`vcardctl vcf --file ~/cards --enhanced`, "write <name>.vcf with wallet lines"},
		},
		Meta: m,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "file",
				Usage:     "file or directory to write, - for stdout",
				TakesFile: true,
			},
			newEnhancedFlag(),
		},
		Action: VcfCommandAction,
	}).Build()
}
