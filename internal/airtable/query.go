// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// Sort directions accepted by the list endpoint.
const (
	Asc  = "asc"
	Desc = "desc"
)

// ListOptions are the optional parameters of a list call.
type ListOptions struct {
	SortField     string   `url:"sort[0][field],omitempty"`
	SortDirection string   `url:"sort[0][direction],omitempty"`
	FilterFormula string   `url:"filterByFormula,omitempty"`
	View          string   `url:"view,omitempty"`
	Fields        []string `url:"fields[],omitempty"`
	PageSize      int      `url:"pageSize,omitempty"`
	MaxRecords    int      `url:"maxRecords,omitempty"`
}

// SortedBy is shorthand for a single field sort. An empty or unknown
// direction sorts ascending.
func SortedBy(field, direction string) ListOptions {
	return ListOptions{SortField: field, SortDirection: direction}
}

// Normalize returns a copy with the direction canonicalized. A direction
// without a field is dropped.
func (o ListOptions) Normalize() ListOptions {
	if o.SortField == "" {
		o.SortDirection = ""
		return o
	}
	if strings.EqualFold(o.SortDirection, Desc) {
		o.SortDirection = Desc
	} else {
		o.SortDirection = Asc
	}
	return o
}

// CacheKey is the part of a cache key contributed by the options. Only the
// parameters that change the result set take part.
func (o ListOptions) CacheKey() string {
	o = o.Normalize()
	parts := []string{o.SortField, o.SortDirection}
	if o.FilterFormula != "" {
		parts = append(parts, o.FilterFormula)
	}
	if o.View != "" {
		parts = append(parts, "view="+o.View)
	}
	if o.MaxRecords > 0 {
		parts = append(parts, "max="+strconv.Itoa(o.MaxRecords))
	}
	return strings.Join(parts, ":")
}

type pageQuery struct {
	ListOptions
	Offset string `url:"offset,omitempty"`
}

func (o ListOptions) values(offset string) (url.Values, error) {
	return query.Values(pageQuery{ListOptions: o.Normalize(), Offset: offset})
}
