// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/vcardctl/internal/config"
)

// FieldsPrefix is where Airtable keeps the user columns of a record.
const FieldsPrefix = "fields."

var lengthRegex = regexp.MustCompile(`-?\d+`)

// Attr represents each of the keys to be included in the output. Keys are
// paths into the record JSON, so "Nombre" reads fields.Nombre and ".id" reads
// the record id.
type Attr struct {
	// The JSON key to extract from the record.
	Key string
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool
	// The key to use in the output. This is also the column title when
	// output=text.
	OutputKey string
	// Transformation spec to apply to the output value.
	TransformSpec string
}

// Transform applies the spec letters to value:
//
//	t  convert an RFC3339 time to the configured timezone
//	h  humanize times ("3 days ago") and numbers ("1,234")
//	b  humanize a byte count ("1.2 MB")
//	l  lower case, u  upper case (last one wins)
//	N  truncate to N runes, -N elide the middle
func (a *Attr) Transform(value interface{}) interface{} {
	if a.TransformSpec == "" {
		return value
	}

	if n, ok := value.(float64); ok {
		return a.transformNumber(n)
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "tT") {
		result = a.toLocal(result)
	}

	if strings.ContainsAny(a.TransformSpec, "hH") {
		if t, err := time.Parse(time.RFC3339, result); err == nil {
			result = humanize.Time(t)
		}
	}

	// The last case letter wins so an attr's own spec beats a global one.
	// IOW...  --attrs '*::U,Nombre::l' will be lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Same logic as above re: case. The last length wins.
	if match := lengthRegex.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		result = truncate(result, l)
	}

	return result
}

func (a *Attr) transformNumber(n float64) interface{} {
	switch {
	case strings.ContainsAny(a.TransformSpec, "bB"):
		if n < 0 {
			return n
		}
		return humanize.Bytes(uint64(n))
	case strings.ContainsAny(a.TransformSpec, "hH"):
		if n == math.Trunc(n) {
			return humanize.Comma(int64(n))
		}
		return humanize.Commaf(n)
	}
	return n
}

// toLocal converts only when a timezone is configured. Otherwise the value is
// returned untouched.
func (a *Attr) toLocal(value string) string {
	tz, _ := config.GetString("timezone", "")
	if tz == "" {
		tz = os.Getenv("TZ")
	}
	if tz == "" {
		return value
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithError(err).Debugf("unknown timezone %q", tz)
		return value
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Debugf("not a time: %s", value)
		return value
	}
	return t.In(loc).Format("2006-01-02T15:04:05MST")
}

func truncate(s string, l int) string {
	r := []rune(s)
	abs := int(math.Abs(float64(l)))
	if len(r) <= abs {
		return s
	}
	if l >= 0 {
		return string(r[:l])
	}
	side := abs/2 - 1
	if side < 1 {
		return string(r[:abs])
	}
	return string(r[:side]) + ".." + string(r[len(r)-side:])
}

type AttrList []Attr

// Return a string representation of the AttrList. This should match the format
// of the original --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses a comma separated --attrs value. Each spec is
// key[:outputKey[:transform]]. A leading ! keeps the key for filtering and
// sorting but hides it. A leading . reads from the record root instead of
// fields, and * carries a transform applied to every attr.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		jsonIdx = iota
		outputIdx
		transformIdx
	)

specloop:
	for _, spec := range strings.Split(value, ",") {
		attr := Attr{Include: true}

		fields := strings.Split(spec, ":")
		if len(fields) > 3 {
			return fmt.Errorf("invalid attr spec %q", spec)
		}

		attr.Key = strings.TrimSpace(fields[jsonIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("empty key in attr spec %q", spec)
		}
		if attr.Key == "*" {
			attr.Include = false
		}

		// With no output key, the last segment of the key is used.
		if len(fields) == 1 || strings.TrimSpace(fields[outputIdx]) == "" {
			segments := strings.Split(strings.TrimPrefix(attr.Key, "."), ".")
			attr.OutputKey = segments[len(segments)-1]
		} else {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// Re-specifying an attr that's already in the list (a command default or
		// a double entry) updates it in place.
		full := qualify(attr.Key)
		for i := range *a {
			if (*a)[i].Key == full || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		attr.Key = full
		*a = append(*a, attr)
	}

	return nil
}

// qualify maps an attr key to its path in the record JSON.
func qualify(key string) string {
	switch {
	case key == "*":
		return key
	case strings.HasPrefix(key, "."):
		return key[1:]
	default:
		return FieldsPrefix + key
	}
}

// SetGlobalTransformSpec inserts a global transform spec into the front of all
// attrs in the list.
func (a *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	// Only the first global spec counts.
	for i := range *a {
		if (*a)[i].Key == "*" {
			spec = (*a)[i].TransformSpec
			break
		}
	}

	if spec == "" {
		return nil
	}

	for i := range *a {
		if (*a)[i].Key == "*" {
			continue
		}
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}

	return nil
}

// Lookup returns the attr whose output key or key matches name.
func (a AttrList) Lookup(name string) (Attr, bool) {
	for _, attr := range a {
		if attr.OutputKey == name || attr.Key == name || attr.Key == qualify(name) {
			return attr, true
		}
	}
	return Attr{}, false
}

func (a *AttrList) Type() string {
	return "list"
}
