// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/differ"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
	"github.com/staranto/vcardctl/internal/querycache"
	"github.com/staranto/vcardctl/internal/resource"
	"github.com/staranto/vcardctl/internal/snapshot"
)

// listOptions builds the remote query from --by, --desc, --formula, --view
// and --max.
func listOptions(cmd *cli.Command) airtable.ListOptions {
	dir := airtable.Asc
	if cmd.Bool("desc") {
		dir = airtable.Desc
	}
	return airtable.ListOptions{
		SortField:     cmd.String("by"),
		SortDirection: dir,
		FilterFormula: cmd.String("formula"),
		View:          cmd.String("view"),
		MaxRecords:    int(cmd.Int("max")),
	}.Normalize()
}

// dumpSchema prints the schema of the table behind res.
func dumpSchema(ctx context.Context, cmd *cli.Command, client *airtable.Client, res resource.Key) error {
	table, err := client.TableName(res)
	if err != nil {
		return err
	}

	tables, err := client.Tables(ctx)
	if err != nil {
		return friendly(client, res, "read schema of", err)
	}
	for _, ts := range tables {
		if ts.Name == table {
			output.DumpSchema(out(cmd), ts)
			return nil
		}
	}
	return fmt.Errorf("table %q is not in base %s", table, client.BaseID())
}

// loadSnapshot reads records saved with `records -o raw`.
func loadSnapshot(m meta.Meta, path string) ([]airtable.Record, error) {
	if !filepath.IsAbs(path) && m.StartingDir != "" {
		path = filepath.Join(m.StartingDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var recs []airtable.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return recs, nil
}

// printDiff writes what changed between before and after, then a summary.
func printDiff(cmd *cli.Command, before, after []airtable.Record) error {
	d, err := differ.Records(before, after, differ.WithColor(cmd.Bool("color")))
	if err != nil {
		return err
	}
	if d.Modified() {
		fmt.Fprint(out(cmd), d.Text)
	}
	fmt.Fprintln(out(cmd), d.Summary())
	return nil
}

func RecordsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	res, err := resourceArg(cmd, 0)
	if err != nil {
		return err
	}

	svc, client := NewService(m)

	if cmd.Bool("schema") {
		return dumpSchema(ctx, cmd, client, res)
	}

	opts := listOptions(cmd)
	recs, err := svc.Cache().Fetch(ctx, res, opts)
	if err != nil {
		return friendly(client, res, "list", err)
	}
	log.Debugf("%s: %d records", res, len(recs))

	var store *snapshot.Store
	if cmd.Bool("save") || cmd.Bool("changes") {
		if store, err = snapshot.NewStore(client.BaseID()); err != nil {
			return err
		}
	}
	key := querycache.Key(res, opts)

	switch {
	case cmd.String("diff") != "":
		before, err := loadSnapshot(m, cmd.String("diff"))
		if err != nil {
			return err
		}
		return printDiff(cmd, before, recs)
	case cmd.Bool("changes"):
		before, at, err := store.Load(res, key)
		if err != nil {
			return err
		}
		log.Debugf("comparing with snapshot of %s", humanize.Time(at))
		if err := printDiff(cmd, before, recs); err != nil {
			return err
		}
		if cmd.Bool("save") {
			return store.Save(res, key, recs)
		}
		return nil
	case cmd.Bool("save"):
		if err := store.Save(res, key, recs); err != nil {
			return err
		}
	}

	return spitRecords(cmd, recs...)
}

func RecordsCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "records",
		Usage:     "list the records of a resource",
		UsageText: `vcardctl records <resource> [options]`,
		Examples: [][2]string{
			{`vcardctl records social`, "every row of the social table"},
			{`vcardctl records experience --by FechaInicio --desc`, "newest first, sorted by Airtable"},
			{`vcardctl records social -f Activo=true -s -Orden`, "active rows, highest Orden first"},
			{`vcardctl records social -o raw > redes.json`, "save a snapshot"},
			{`vcardctl records social --diff redes.json`, "what changed since the snapshot"},
			{`vcardctl records social --changes --save`, "what changed since the last run, then save"},
			{`vcardctl records gallery --schema`, "the fields of the gallery table"},
		},
		Meta:    m,
		Global:  true,
		MinArgs: 1,
		MaxArgs: 1,
		Flags: []cli.Flag{
			newSchemaFlag(),
			&cli.StringFlag{
				Name:  "by",
				Usage: "field to sort by on the server",
			},
			&cli.BoolFlag{
				Name:  "desc",
				Usage: "sort --by descending",
			},
			&cli.StringFlag{
				Name:  "formula",
				Usage: "Airtable formula the records must satisfy, e.g. '{Activo} = TRUE()'",
			},
			&cli.StringFlag{
				Name:  "view",
				Usage: "Airtable view to read through",
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "stop after this many records",
			},
			&cli.StringFlag{
				Name:      "diff",
				Usage:     "compare with records saved by -o raw",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "keep a snapshot of the records for --changes",
			},
			&cli.BoolFlag{
				Name:  "changes",
				Usage: "compare with the last --save snapshot",
			},
		},
		Action: RecordsCommandAction,
	}).Build()
}
