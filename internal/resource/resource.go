// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"strings"
	"time"
)

// Key identifies a logical collection of card content. Each Key is backed by
// exactly one Airtable table.
type Key string

const (
	Config          Key = "config"
	Contact         Key = "contact"
	Social          Key = "social"
	Gallery         Key = "gallery"
	Videos          Key = "videos"
	Experience      Key = "experience"
	SobreMi         Key = "sobremi"
	Ubicacion       Key = "ubicacion"
	PosicionTarjeta Key = "posiciontarjeta"
	Colaborar       Key = "colaborar"
	Personalizacion Key = "personalizacion"
)

// Staleness is the cache tier of a resource. It reflects how often the
// underlying content is expected to change.
type Staleness int

const (
	Static Staleness = iota
	Moderate
	Frequent
	Realtime
)

var stalenessNames = map[Staleness]string{
	Static:   "static",
	Moderate: "moderate",
	Frequent: "frequent",
	Realtime: "realtime",
}

func (s Staleness) String() string {
	if n, ok := stalenessNames[s]; ok {
		return n
	}
	return fmt.Sprintf("staleness(%d)", int(s))
}

// DefaultTTL returns the built-in time-to-live for the class. Callers that
// allow tuning should consult config first.
func (s Staleness) DefaultTTL() time.Duration {
	switch s {
	case Static:
		return 30 * time.Minute //nolint:mnd
	case Moderate:
		return 10 * time.Minute //nolint:mnd
	case Frequent:
		return 5 * time.Minute //nolint:mnd
	default:
		return 30 * time.Second //nolint:mnd
	}
}

// Stalenesses lists every class, longest TTL first.
func Stalenesses() []Staleness {
	return []Staleness{Static, Moderate, Frequent, Realtime}
}

// Def is the static description of a resource.
type Def struct {
	Key Key
	// Table is the default Airtable table name.
	Table string
	// EnvVar is the environment variable that overrides Table.
	EnvVar    string
	Staleness Staleness
}

var defs = []Def{
	{Config, "Configuracion", "AIRTABLE_CONFIG_TABLE", Static},
	{Contact, "Contacto", "AIRTABLE_CONTACT_TABLE", Frequent},
	{Social, "Redes", "AIRTABLE_SOCIAL_TABLE", Frequent},
	{Gallery, "Galeria", "AIRTABLE_GALLERY_TABLE", Moderate},
	{Videos, "Videos", "AIRTABLE_VIDEOS_TABLE", Moderate},
	{Experience, "Experiencia", "AIRTABLE_EXPERIENCE_TABLE", Moderate},
	{SobreMi, "SobreMi", "AIRTABLE_SOBREMI_TABLE", Static},
	{Ubicacion, "Ubicacion", "AIRTABLE_UBICACION_TABLE", Static},
	{PosicionTarjeta, "PosicionTarjeta", "AIRTABLE_POSICION_TABLE", Realtime},
	{Colaborar, "Colaborar", "AIRTABLE_COLABORAR_TABLE", Realtime},
	{Personalizacion, "Personalizacion", "AIRTABLE_PERSONALIZACION_TABLE", Frequent},
}

// All returns every resource definition in declaration order.
func All() []Def {
	out := make([]Def, len(defs))
	copy(out, defs)
	return out
}

// Keys returns every resource key in declaration order.
func Keys() []Key {
	keys := make([]Key, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys
}

// Lookup returns the definition for k.
func Lookup(k Key) (Def, bool) {
	for _, d := range defs {
		if d.Key == k {
			return d, true
		}
	}
	return Def{}, false
}

// Parse resolves a user supplied name to a Key. Matching is case-insensitive
// and also accepts the default table name, so both "social" and "Redes" work.
func Parse(name string) (Key, error) {
	n := strings.TrimSpace(name)
	for _, d := range defs {
		if strings.EqualFold(n, string(d.Key)) || strings.EqualFold(n, d.Table) {
			return d.Key, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q (valid: %s)", name, strings.Join(keyStrings(), ", "))
}

// StalenessOf returns the class for k. Unknown keys are treated as Realtime so
// they are never cached for long.
func StalenessOf(k Key) Staleness {
	if d, ok := Lookup(k); ok {
		return d.Staleness
	}
	return Realtime
}

func keyStrings() []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, string(d.Key))
	}
	return out
}
