// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"
)

// RenderCard prints the view model of one card. json and yaml emit the model
// as is; text draws it inside a titled box. A nil model prints nothing in
// text mode and null otherwise.
func RenderCard(w io.Writer, title string, data any, opts Options) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", title, err)
	}

	switch opts.Format {
	case FormatJSON, FormatRaw:
		_, err = fmt.Fprintln(w, string(b))
		return err
	case FormatYAML:
		var v interface{}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		y, err := yaml.Marshal(map[string]interface{}{title: v})
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(y)
		return err
	}

	if data == nil {
		return nil
	}

	body := strings.Join(cardLines(gjson.ParseBytes(b), ""), "\n")

	titleStyle := lipgloss.NewStyle().Bold(true)
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if opts.Color {
		header, _, odd := getColors("colors")
		titleStyle = titleStyle.Foreground(lipgloss.Color(header))
		boxStyle = boxStyle.BorderForeground(lipgloss.Color(odd))
	}

	_, err = fmt.Fprintln(w, boxStyle.Render(titleStyle.Render(title)+"\n\n"+body))
	return err
}

// cardLines flattens a JSON value into indented "key: value" lines. Empty
// values are left out.
func cardLines(r gjson.Result, indent string) []string {
	var lines []string

	switch {
	case r.IsObject():
		r.ForEach(func(k, v gjson.Result) bool {
			switch {
			case v.IsObject() || v.IsArray():
				sub := cardLines(v, indent+"  ")
				if len(sub) > 0 {
					lines = append(lines, indent+k.String()+":")
					lines = append(lines, sub...)
				}
			case isBlank(v):
			default:
				lines = append(lines, indent+k.String()+": "+v.String())
			}
			return true
		})
	case r.IsArray():
		for _, el := range r.Array() {
			sub := cardLines(el, indent+"  ")
			if len(sub) == 0 {
				continue
			}
			// Swap the indent of the first line for the list marker.
			sub[0] = indent + "- " + strings.TrimPrefix(sub[0], indent+"  ")
			lines = append(lines, sub...)
		}
	case !isBlank(r):
		lines = append(lines, indent+r.String())
	}

	return lines
}

func isBlank(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return true
	case gjson.String:
		return strings.TrimSpace(r.Str) == ""
	}
	return !r.Exists()
}
