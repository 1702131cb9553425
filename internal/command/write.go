// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/meta"
)

func CreateCommandAction(ctx context.Context, cmd *cli.Command) error {
	res, err := resourceArg(cmd, 0)
	if err != nil {
		return err
	}
	fields, err := ParseFieldArgs(cmd.Args().Slice()[1:])
	if err != nil {
		return err
	}

	svc, client := NewService(GetMeta(cmd))
	rec, err := svc.CreateFields(ctx, res, fields)
	if err != nil {
		return friendly(client, res, "create a record in", err)
	}
	return spitRecords(cmd, *rec)
}

func UpdateCommandAction(ctx context.Context, cmd *cli.Command) error {
	res, err := resourceArg(cmd, 0)
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)
	fields, err := ParseFieldArgs(cmd.Args().Slice()[2:])
	if err != nil {
		return err
	}

	svc, client := NewService(GetMeta(cmd))
	rec, err := svc.UpdateFields(ctx, res, id, fields)
	if err != nil {
		return friendly(client, res, "update "+id+" in", err)
	}
	return spitRecords(cmd, *rec)
}

func DeleteCommandAction(ctx context.Context, cmd *cli.Command) error {
	res, err := resourceArg(cmd, 0)
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)

	svc, client := NewService(GetMeta(cmd))
	if err := client.Configured(); err != nil {
		return err
	}
	if _, err := svc.Delete(ctx, res, id); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "deleted %s\n", id)
	return nil
}

func CreateCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "create",
		Usage:     "add a record",
		UsageText: `vcardctl create <resource> field=value... [options]`,
		Examples: [][2]string{
			{`vcardctl create social Name=Bluesky Link=https://bsky.app/profile/ana Activo=true`, "add a network"},
			{`vcardctl create experience Empresa=Acme 'Tags:=["go"]'`, "raw JSON for a field"},
		},
		Meta:    m,
		Global:  true,
		MinArgs: 2,
		MaxArgs: -1,
		Action:  CreateCommandAction,
	}).Build()
}

func UpdateCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "update",
		Usage:     "change fields of a record",
		UsageText: `vcardctl update <resource> <id> field=value... [options]`,
		Examples: [][2]string{
			{`vcardctl update social rec123 Activo=false`, "hide a network"},
			{`vcardctl update contact rec456 Web=`, "clear a field"},
		},
		Meta:    m,
		Global:  true,
		MinArgs: 3,
		MaxArgs: -1,
		Action:  UpdateCommandAction,
	}).Build()
}

func DeleteCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "delete",
		Usage:     "remove a record",
		UsageText: `vcardctl delete <resource> <id>`,
		Examples: [][2]string{
			{`vcardctl delete social rec123`, "remove a record"},
		},
		Meta:    m,
		MinArgs: 2,
		MaxArgs: 2,
		Action:  DeleteCommandAction,
	}).Build()
}
