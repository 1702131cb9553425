// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// FieldSchema describes one column of a table.
type FieldSchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema describes one table of the base.
type TableSchema struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	PrimaryFieldID string        `json:"primaryFieldId"`
	Fields         []FieldSchema `json:"fields"`
}

// Field returns the named field schema, if any.
func (t TableSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// Tables introspects the base through the metadata endpoint. The token needs
// the schema.bases:read scope.
func (c *Client) Tables(ctx context.Context) ([]TableSchema, error) {
	path := "/meta/bases/" + url.PathEscape(c.baseID) + "/tables"
	data, err := c.do(ctx, http.MethodGet, path, nil, nil, "read schema", "")
	if err != nil {
		return nil, err
	}
	return parseTables(data), nil
}

func parseTables(data []byte) []TableSchema {
	var out []TableSchema
	gjson.GetBytes(data, "tables").ForEach(func(_, t gjson.Result) bool {
		ts := TableSchema{
			ID:             t.Get("id").String(),
			Name:           t.Get("name").String(),
			PrimaryFieldID: t.Get("primaryFieldId").String(),
		}
		t.Get("fields").ForEach(func(_, f gjson.Result) bool {
			ts.Fields = append(ts.Fields, FieldSchema{
				ID:   f.Get("id").String(),
				Name: f.Get("name").String(),
				Type: f.Get("type").String(),
			})
			return true
		})
		out = append(out, ts)
		return true
	})
	return out
}
