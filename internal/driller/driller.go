// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package driller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// segment is one step of a path: a key plus any trailing [i] indexes.
type segment struct {
	key     string
	indexes []int
}

var indexRegex = regexp.MustCompile(`\[(\d+)\]$`)

// Driller walks raw JSON along a dotted path such as "fields.Imagen[0].url".
//
// Keys are matched exactly, so Airtable field names with spaces work as-is. A
// literal dot in a key is written as "\.". Single-element arrays are stepped
// through transparently. A multi-element array met mid-path without an index
// fans out, and the result is an array of whatever each element yields. A
// missing key yields an empty Result.
func Driller(raw, path string) gjson.Result {
	root := gjson.Parse(raw)
	if strings.TrimSpace(path) == "" || path == "." {
		return root
	}
	return drill(root, parsePath(path))
}

func drill(cur gjson.Result, segs []segment) gjson.Result {
	if len(segs) == 0 {
		return unwrap(cur)
	}

	if cur.IsArray() {
		arr := cur.Array()
		if len(arr) == 1 {
			return drill(arr[0], segs)
		}
		return fanOut(arr, segs)
	}

	if !cur.IsObject() {
		return gjson.Result{}
	}

	seg := segs[0]
	next := child(cur, seg.key)
	if !next.Exists() {
		return gjson.Result{}
	}

	for _, i := range seg.indexes {
		if !next.IsArray() {
			return gjson.Result{}
		}
		arr := next.Array()
		if i >= len(arr) {
			return gjson.Result{}
		}
		next = arr[i]
	}

	if len(segs) == 1 && len(seg.indexes) > 0 {
		return next
	}
	return drill(next, segs[1:])
}

// fanOut applies the rest of the path to every element and collects the hits.
func fanOut(arr []gjson.Result, segs []segment) gjson.Result {
	var raws []string
	for _, e := range arr {
		r := drill(e, segs)
		if r.Exists() {
			raws = append(raws, r.Raw)
		}
	}
	if len(raws) == 0 {
		return gjson.Result{}
	}
	return gjson.Parse("[" + strings.Join(raws, ",") + "]")
}

func child(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

func unwrap(r gjson.Result) gjson.Result {
	if r.IsArray() {
		if arr := r.Array(); len(arr) == 1 {
			return arr[0]
		}
	}
	return r
}

// parsePath splits on unescaped dots.
func parsePath(path string) []segment {
	var (
		segs []segment
		sb   strings.Builder
	)

	flush := func() {
		segs = append(segs, parseSegment(sb.String()))
		sb.Reset()
	}

	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path) && path[i+1] == '.':
			sb.WriteByte('.')
			i++
		case c == '.':
			flush()
		default:
			sb.WriteByte(c)
		}
	}
	flush()

	return segs
}

func parseSegment(s string) segment {
	var idx []int
	for {
		m := indexRegex.FindStringSubmatchIndex(s)
		if m == nil {
			break
		}
		n, _ := strconv.Atoi(s[m[2]:m[3]])
		idx = append([]int{n}, idx...)
		s = s[:m[0]]
	}
	return segment{key: s, indexes: idx}
}
