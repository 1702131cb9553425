// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/vcardctl/internal/airtable"
)

// Result describes how a listing changed. The id slices are sorted.
type Result struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
	// Text is the rendered field level diff, empty when nothing changed.
	Text string `json:"-"`
}

// Modified reports whether any record was added, removed or changed.
func (r Result) Modified() bool {
	return len(r.Added)+len(r.Removed)+len(r.Changed) > 0
}

// Summary is a one line count of the changes, e.g. "+1 -0 ~2".
func (r Result) Summary() string {
	return fmt.Sprintf("+%d -%d ~%d", len(r.Added), len(r.Removed), len(r.Changed))
}

type Option func(*formatter.AsciiFormatterConfig)

// WithColor colors the rendered diff.
func WithColor(on bool) Option {
	return func(c *formatter.AsciiFormatterConfig) { c.Coloring = on }
}

// Records compares two listings. Records are matched by id; order does not
// matter.
func Records(before, after []airtable.Record, opts ...Option) (Result, error) {
	left, err := byID(before)
	if err != nil {
		return Result{}, err
	}
	right, err := byID(after)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for id, l := range left {
		r, ok := right[id]
		switch {
		case !ok:
			res.Removed = append(res.Removed, id)
		case !reflect.DeepEqual(l, r):
			res.Changed = append(res.Changed, id)
		}
	}
	for id := range right {
		if _, ok := left[id]; !ok {
			res.Added = append(res.Added, id)
		}
	}
	slices.Sort(res.Added)
	slices.Sort(res.Removed)
	slices.Sort(res.Changed)

	if !res.Modified() {
		return res, nil
	}

	d := gojsondiff.New().CompareObjects(left, right)
	if !d.Modified() {
		return res, nil
	}

	cfg := formatter.AsciiFormatterConfig{ShowArrayIndex: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	res.Text, err = formatter.NewAsciiFormatter(left, cfg).Format(d)
	if err != nil {
		return res, fmt.Errorf("failed to format diff: %w", err)
	}
	return res, nil
}

func byID(recs []airtable.Record) (map[string]any, error) {
	out := make(map[string]any, len(recs))
	for _, r := range recs {
		fields := map[string]any{}
		if len(r.Fields) > 0 {
			if err := json.Unmarshal(r.Fields, &fields); err != nil {
				return nil, fmt.Errorf("record %s: %w", r.ID, err)
			}
		}
		out[r.ID] = fields
	}
	return out, nil
}
