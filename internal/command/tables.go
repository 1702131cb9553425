// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
	"github.com/staranto/vcardctl/internal/resource"
)

type tableRow struct {
	Resource string `json:"resource"`
	Name     string `json:"name"`
	ID       string `json:"id"`
	Fields   int    `json:"fields"`
}

// tableRows pairs every table of the base with the resource it backs, if any.
func tableRows(client *airtable.Client, tables []airtable.TableSchema) []tableRow {
	byName := map[string]resource.Key{}
	for _, k := range resource.Keys() {
		if t, err := client.TableName(k); err == nil {
			byName[t] = k
		}
	}

	rows := make([]tableRow, 0, len(tables))
	for _, ts := range tables {
		rows = append(rows, tableRow{
			Resource: string(byName[ts.Name]),
			Name:     ts.Name,
			ID:       ts.ID,
			Fields:   len(ts.Fields),
		})
	}
	return rows
}

func TablesCommandAction(ctx context.Context, cmd *cli.Command) error {
	client := NewClient(GetMeta(cmd))

	tables, err := client.Tables(ctx)
	if err != nil {
		return airtable.Friendly(err, airtable.ErrorContext{Base: client.BaseID(), Operation: "read schema of", Table: "base"})
	}

	var raw bytes.Buffer
	if err := json.NewEncoder(&raw).Encode(tableRows(client, tables)); err != nil {
		return err
	}

	al := BuildAttrs(cmd, ".resource", ".name", ".id", ".fields")
	return output.SliceDiceSpit(raw, al, output.FromCommand(cmd), out(cmd))
}

func TablesCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "tables",
		Usage:     "list the tables of the base",
		UsageText: `vcardctl tables [options]`,
		Examples: [][2]string{
			{`vcardctl tables`, "tables of the base and the resource they back"},
		},
		Meta:   m,
		Global: true,
		Action: TablesCommandAction,
	}).Build()
}
