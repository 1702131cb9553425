// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/config"
	"github.com/staranto/vcardctl/internal/meta"
)

// InitApp builds the vcardctl command tree. env carries the Airtable
// credentials; args are only kept for logging.
func InitApp(ctx context.Context, args []string, env config.Env) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// args[1] is the subcommand and the config namespace, unless it's a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}
	config.SetNamespace(ns)

	cfg, _ := config.Load()
	m := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Env:         env,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "vcardctl",
		Usage: "digital business card control",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "vcardctl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		ShowCommandBuilder(app, m, nil),
		CardCommandBuilder(app, m, nil),
		RecordsCommandBuilder(app, m, nil),
		GetCommandBuilder(app, m, nil),
		CreateCommandBuilder(app, m, nil),
		UpdateCommandBuilder(app, m, nil),
		DeleteCommandBuilder(app, m, nil),
		TablesCommandBuilder(app, m, nil),
		VcfCommandBuilder(app, m, nil),
		PublishCommandBuilder(app, m, nil),
		ServeCommandBuilder(app, m, nil),
		CompletionCommandBuilder(app, m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
