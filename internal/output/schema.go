// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"

	"github.com/staranto/vcardctl/internal/airtable"
)

// DumpSchema prints the fields of ts sorted by name, marking the primary
// field with *.
func DumpSchema(w io.Writer, ts airtable.TableSchema) {
	fields := append([]airtable.FieldSchema(nil), ts.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		mark := ""
		if f.ID == ts.PrimaryFieldID {
			mark = "*"
		}
		rows = append(rows, []string{mark + f.Name, f.Type})
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Rows(rows...)

	fmt.Fprintln(w, "Schema for", ts.Name, "--")
	fmt.Fprintln(w, t)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w,
		`Fields are directly available to the --attrs, --filter and --sort flags.
Record level keys are reached with a leading dot, e.g. .id or .createdTime.`)
}
