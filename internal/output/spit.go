// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/attrs"
	"github.com/staranto/vcardctl/internal/config"
	"github.com/staranto/vcardctl/internal/filters"
)

// Formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

// Options carries the presentation flags shared by every listing command.
type Options struct {
	Format string
	Color  bool
	Titles bool
	Local  bool
	Filter string
	Sort   string
}

// FromCommand reads Options from the global flags of cmd.
func FromCommand(cmd *cli.Command) Options {
	return Options{
		Format: cmd.String("output"),
		Color:  cmd.Bool("color"),
		Titles: cmd.Bool("titles"),
		Local:  cmd.Bool("local"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
	}
}

// RecordsJSON encodes records as the JSON array SliceDiceSpit consumes.
func RecordsJSON(recs []airtable.Record) (bytes.Buffer, error) {
	var raw bytes.Buffer
	if recs == nil {
		recs = []airtable.Record{}
	}
	if err := json.NewEncoder(&raw).Encode(recs); err != nil {
		return raw, fmt.Errorf("failed to encode records: %w", err)
	}
	return raw, nil
}

// SliceDiceSpit filters, transforms, sorts and renders a JSON array of rows
// according to opts and the attrs.
func SliceDiceSpit(raw bytes.Buffer, al attrs.AttrList, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	if opts.Format == FormatRaw {
		_, err := w.Write(raw.Bytes())
		return err
	}

	// Filter first so the rest works on fewer rows.
	dataset := filters.FilterDataset(gjson.Parse(raw.String()), al, opts.Filter)

	// --local converts every value that parses as a time, the rest are left
	// alone by Transform.
	if opts.Local {
		for i := range al {
			al[i].TransformSpec += ",t"
		}
	}

	for _, row := range dataset {
		for _, attr := range al {
			if attr.TransformSpec != "" && attr.Key != "*" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}

	SortDataset(dataset, opts.Sort)

	// Hidden attrs were only needed for filtering and sorting.
	visible := dataset[:0:0]
	for _, row := range dataset {
		out := make(map[string]interface{}, len(row))
		for _, attr := range al {
			if attr.Include {
				out[attr.OutputKey] = row[attr.OutputKey]
			}
		}
		visible = append(visible, out)
	}

	switch opts.Format {
	case FormatJSON:
		if visible == nil {
			visible = []map[string]interface{}{}
		}
		b, err := json.Marshal(visible)
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case FormatYAML:
		b, err := yaml.Marshal(visible)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		TableWriter(visible, al, opts, w)
	}
	return nil
}

// TableWriter renders the result set as a borderless table, honoring the
// color and titles options.
func TableWriter(resultSet []map[string]interface{}, al attrs.AttrList, opts Options, w io.Writer) {
	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)
	log.Debugf("padding: %v", pad)

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(result))
		for _, attr := range al {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		var headers []string
		for _, attr := range al {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// DumpExamples renders a table of example command usages.
func DumpExamples(_ context.Context, w io.Writer, examples [][2]string) {
	if len(examples) == 0 {
		return
	}

	var rows [][]string
	for _, ex := range examples {
		rows = append(rows, []string{ex[0], ex[1]})
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Headers("Command", "Description").
		BorderHeader(false).
		Rows(rows...)

	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		if value == math.Trunc(value) {
			return strconv.FormatFloat(value, 'f', 0, 64)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
