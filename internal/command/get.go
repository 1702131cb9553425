// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
)

// spitRecords renders recs through the attrs, filter and sort pipeline.
func spitRecords(cmd *cli.Command, recs ...airtable.Record) error {
	raw, err := output.RecordsJSON(recs)
	if err != nil {
		return err
	}
	return output.SliceDiceSpit(raw, recordAttrs(cmd, recs), output.FromCommand(cmd), out(cmd))
}

func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	res, err := resourceArg(cmd, 0)
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)

	client := NewClient(GetMeta(cmd))
	if err := client.Configured(); err != nil {
		return err
	}

	rec := client.Get(ctx, res, id)
	if rec == nil {
		return fmt.Errorf("record %s not found in %s", id, res)
	}
	return spitRecords(cmd, *rec)
}

func GetCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "get",
		Usage:     "show one record",
		UsageText: `vcardctl get <resource> <id> [options]`,
		Examples: [][2]string{
			{`vcardctl get social rec123`, "one record"},
		},
		Meta:    m,
		Global:  true,
		MinArgs: 2,
		MaxArgs: 2,
		Action:  GetCommandAction,
	}).Build()
}
