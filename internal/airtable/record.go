// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Record is one row of an Airtable table. Fields are kept as raw JSON because
// the store enforces no shape; typed access goes through the getters below,
// which treat a value of the wrong JSON type as absent.
type Record struct {
	ID          string          `json:"id"`
	CreatedTime time.Time       `json:"createdTime"`
	Fields      json.RawMessage `json:"fields"`
}

// Attachment is an element of a multipleAttachments field.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Collaborator is the value of a collaborator field.
type Collaborator struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Field returns the raw value of the named field. Names are matched exactly,
// so names containing spaces, slashes or dots ("Url Navegador",
// "Puesto/Texto") need no escaping.
func (r Record) Field(name string) gjson.Result {
	var out gjson.Result
	if len(r.Fields) == 0 {
		return out
	}
	gjson.ParseBytes(r.Fields).ForEach(func(k, v gjson.Result) bool {
		if k.String() == name {
			out = v
			return false
		}
		return true
	})
	return out
}

// Has reports whether the field is present with a non-null value.
func (r Record) Has(name string) bool {
	f := r.Field(name)
	return f.Exists() && f.Type != gjson.Null
}

// String returns a text field, or "" when absent or not a string.
func (r Record) String(name string) string {
	if f := r.Field(name); f.Type == gjson.String {
		return f.Str
	}
	return ""
}

// TrimmedString is String with surrounding whitespace removed.
func (r Record) TrimmedString(name string) string {
	return strings.TrimSpace(r.String(name))
}

// Bool returns true only when the field is the JSON literal true. Airtable
// omits unchecked checkboxes entirely, so absent and false are equivalent.
func (r Record) Bool(name string) bool {
	return r.Field(name).Type == gjson.True
}

// Number returns a numeric field and whether it was present as a number.
func (r Record) Number(name string) (float64, bool) {
	if f := r.Field(name); f.Type == gjson.Number {
		return f.Num, true
	}
	return 0, false
}

// Attachments returns the attachments of a multipleAttachments field in order.
// Elements that are not objects or have no url are skipped.
func (r Record) Attachments(name string) []Attachment {
	f := r.Field(name)
	if !f.IsArray() {
		return nil
	}

	var out []Attachment
	for _, el := range f.Array() {
		if !el.IsObject() {
			continue
		}
		url := el.Get("url")
		if url.Type != gjson.String || url.Str == "" {
			continue
		}
		out = append(out, Attachment{
			ID:       el.Get("id").String(),
			URL:      url.Str,
			Filename: stringOrEmpty(el.Get("filename")),
			Size:     el.Get("size").Int(),
			Type:     stringOrEmpty(el.Get("type")),
		})
	}
	return out
}

// Collaborator returns a collaborator field, or nil when absent, not an
// object, or lacking an email.
func (r Record) Collaborator(name string) *Collaborator {
	f := r.Field(name)
	if !f.IsObject() {
		return nil
	}
	email := f.Get("email")
	if email.Type != gjson.String || email.Str == "" {
		return nil
	}
	return &Collaborator{
		ID:    stringOrEmpty(f.Get("id")),
		Email: email.Str,
		Name:  stringOrEmpty(f.Get("name")),
	}
}

func stringOrEmpty(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}
