// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/attrs"
	"github.com/staranto/vcardctl/internal/config"
)

// noConfig keeps a developer's own vcard.yaml out of the way.
func noConfig(t *testing.T) {
	t.Helper()
	t.Setenv("VCARD_CFG", filepath.Join(t.TempDir(), "missing.yaml"))
	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })
}

const socialRecords = `[
  {"id": "rec1", "createdTime": "2025-01-01T00:00:00Z", "fields": {"Nombre": "LinkedIn", "Orden": 1}},
  {"id": "rec2", "createdTime": "2025-01-02T00:00:00Z", "fields": {"Nombre": "GitHub", "Orden": 2}},
  {"id": "rec3", "createdTime": "2025-01-03T00:00:00Z", "fields": {"Nombre": "Instagram", "Orden": 10}}
]`

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0, "type": "Social"},
		{"name": "alpha", "count": 1.0, "type": "gallery"},
		{"name": "Beta", "count": 2.0, "type": "about"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{name: "ascending by name", spec: "name", wantOrder: []string{"alpha", "Beta", "zebra"}},
		{name: "descending by name", spec: "-name", wantOrder: []string{"zebra", "Beta", "alpha"}},
		{name: "ascending by count", spec: "count", wantOrder: []string{"alpha", "Beta", "zebra"}},
		{name: "descending by count", spec: "-count", wantOrder: []string{"zebra", "Beta", "alpha"}},
		{name: "case sensitive", spec: "!name", wantOrder: []string{"Beta", "alpha", "zebra"}},
		{name: "case sensitive descending", spec: "-!name", wantOrder: []string{"zebra", "alpha", "Beta"}},
		{name: "case insensitive type", spec: "type", wantOrder: []string{"Beta", "alpha", "zebra"}},
		{name: "multiple fields", spec: "missing,count", wantOrder: []string{"alpha", "Beta", "zebra"}},
		{name: "empty spec", spec: "", wantOrder: []string{"zebra", "alpha", "Beta"}},
		{name: "only markers", spec: "-,!", wantOrder: []string{"zebra", "alpha", "Beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, expectedName := range tt.wantOrder {
				assert.Equal(t, expectedName, data[i]["name"], "at index %d", i)
			}
		})
	}
}

func TestSortDataset_MissingFirst(t *testing.T) {
	data := []map[string]interface{}{
		{"name": "b", "n": 2.0},
		{"name": "a"},
		{"name": "c", "n": 1.0},
	}
	SortDataset(data, "n")
	assert.Equal(t, []interface{}{"a", "c", "b"}, []interface{}{data[0]["name"], data[1]["name"], data[2]["name"]})
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "whole float64", value: 42.0, want: "42"},
		{name: "float64 with decimal", value: 42.5, want: "42.5"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value int", value: 0, want: ""},
		{name: "zero value with custom empty", value: 0, emptyVal: "N/A", want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetColors(t *testing.T) {
	noConfig(t)

	header, even, odd := getColors("colors")
	assert.Equal(t, "#f6be00", header)
	assert.Equal(t, "#ffffff", even)
	assert.Equal(t, "#00c8f0", odd)
}

func spit(t *testing.T, attrSpec string, opts Options) string {
	t.Helper()
	noConfig(t)

	var al attrs.AttrList
	require.NoError(t, al.Set(attrSpec))

	var out bytes.Buffer
	require.NoError(t, SliceDiceSpit(*bytes.NewBufferString(socialRecords), al, opts, &out))
	return out.String()
}

func TestSliceDiceSpit_JSON(t *testing.T) {
	got := spit(t, ".id,Nombre:name,!Orden", Options{Format: FormatJSON, Filter: "Orden>1", Sort: "-Orden"})
	assert.JSONEq(t, `[{"id":"rec3","name":"Instagram"},{"id":"rec2","name":"GitHub"}]`, got)

	got = spit(t, ".id", Options{Format: FormatJSON, Filter: ".id=none"})
	assert.JSONEq(t, `[]`, got)
}

func TestSliceDiceSpit_Transform(t *testing.T) {
	got := spit(t, "Nombre::u5", Options{Format: FormatJSON, Sort: "Nombre"})
	assert.JSONEq(t, `[{"Nombre":"GITHU"},{"Nombre":"INSTA"},{"Nombre":"LINKE"}]`, got)
}

func TestSliceDiceSpit_YAML(t *testing.T) {
	got := spit(t, "Nombre:name", Options{Format: FormatYAML, Filter: "name=GitHub"})
	assert.Equal(t, "- name: GitHub\n", got)
}

func TestSliceDiceSpit_Raw(t *testing.T) {
	got := spit(t, "Nombre", Options{Format: FormatRaw, Filter: "Nombre=GitHub"})
	assert.Equal(t, socialRecords, got)
}

func TestSliceDiceSpit_Text(t *testing.T) {
	got := spit(t, ".id,Nombre:name,!Orden", Options{Format: FormatText, Titles: true, Sort: "Orden"})
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "LinkedIn")
	assert.Contains(t, got, "rec3")
	assert.NotContains(t, got, "Orden")
	assert.Less(t, bytes.Index([]byte(got), []byte("rec1")), bytes.Index([]byte(got), []byte("rec3")))

	assert.Empty(t, spit(t, "Nombre", Options{Filter: "Nombre=nadie"}))
}

func TestRecordsJSON(t *testing.T) {
	raw, err := RecordsJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", raw.String())

	raw, err = RecordsJSON([]airtable.Record{{
		ID:          "rec1",
		CreatedTime: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Fields:      json.RawMessage(`{"Nombre":"Ana"}`),
	}})
	require.NoError(t, err)
	r := gjson.Parse(raw.String())
	assert.Equal(t, "rec1", r.Get("0.id").String())
	assert.Equal(t, "2025-01-02T03:04:05Z", r.Get("0.createdTime").String())
	assert.Equal(t, "Ana", r.Get("0.fields.Nombre").String())
}

type link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type model struct {
	Name  string  `json:"name"`
	Links []link  `json:"links"`
	Empty string  `json:"empty"`
	Ptr   *string `json:"ptr"`
}

func TestCardLines(t *testing.T) {
	b, err := json.Marshal(model{Name: "Ana", Links: []link{{"GitHub", "u"}}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"name: Ana",
		"links:",
		"  - label: GitHub",
		"    url: u",
	}, cardLines(gjson.ParseBytes(b), ""))

	assert.Equal(t, []string{"- a", "- b"}, cardLines(gjson.Parse(`["a","","b"]`), ""))
	assert.Empty(t, cardLines(gjson.Parse(`{"x":[],"y":{}}`), ""))
}

func TestRenderCard(t *testing.T) {
	noConfig(t)
	m := model{Name: "Ana", Links: []link{{"GitHub", "u"}}}

	var out bytes.Buffer
	require.NoError(t, RenderCard(&out, "social", m, Options{Format: FormatJSON}))
	assert.JSONEq(t, `{"name":"Ana","links":[{"label":"GitHub","url":"u"}],"empty":"","ptr":null}`, out.String())

	out.Reset()
	require.NoError(t, RenderCard(&out, "social", m, Options{Format: FormatYAML}))
	assert.Contains(t, out.String(), "social:\n")
	assert.Contains(t, out.String(), "name: Ana")

	out.Reset()
	require.NoError(t, RenderCard(&out, "social", m, Options{Format: FormatText}))
	assert.Contains(t, out.String(), "social")
	assert.Contains(t, out.String(), "name: Ana")
	assert.Contains(t, out.String(), "- label: GitHub")

	out.Reset()
	require.NoError(t, RenderCard(&out, "social", nil, Options{Format: FormatText}))
	assert.Empty(t, out.String())

	out.Reset()
	require.NoError(t, RenderCard(&out, "social", nil, Options{Format: FormatJSON}))
	assert.Equal(t, "null\n", out.String())
}

func TestDumpSchema(t *testing.T) {
	var out bytes.Buffer
	DumpSchema(&out, airtable.TableSchema{
		Name:           "Config",
		PrimaryFieldID: "fld1",
		Fields: []airtable.FieldSchema{
			{ID: "fld2", Name: "Titulo", Type: "singleLineText"},
			{ID: "fld1", Name: "Nombre", Type: "singleLineText"},
		},
	})
	s := out.String()
	assert.Contains(t, s, "Schema for Config --")
	assert.Contains(t, s, "*Nombre")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("Nombre")), bytes.Index(out.Bytes(), []byte("Titulo")))
}

func TestDumpExamples(t *testing.T) {
	var out bytes.Buffer
	DumpExamples(context.Background(), &out, nil)
	assert.Empty(t, out.String())

	DumpExamples(context.Background(), &out, [][2]string{{"vcardctl show", "render every card"}})
	assert.Contains(t, out.String(), "vcardctl show")
	assert.Contains(t, out.String(), "render every card")
}

func BenchmarkSortDataset(b *testing.B) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0},
		{"name": "alpha", "count": 1.0},
		{"name": "beta", "count": 2.0},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data := make([]map[string]interface{}, len(testData))
		copy(data, testData)
		SortDataset(data, "name")
	}
}
