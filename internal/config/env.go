// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/staranto/vcardctl/internal/resource"
)

// DotEnv is the optional file of environment defaults read at startup.
const DotEnv = ".env"

// Env holds the settings that come from the environment.
type Env struct {
	Token  string `env:"AIRTABLE_TOKEN"`
	BaseID string `env:"AIRTABLE_BASE_ID"`
	APIURL string `env:"AIRTABLE_API_URL" envDefault:"https://api.airtable.com/v0"`
	Log    string `env:"VCARD_LOG"        envDefault:"ERROR"`

	// Tables holds AIRTABLE_<RESOURCE>_TABLE overrides that are set.
	Tables map[resource.Key]string
}

// LoadEnv reads path (default .env) into the process environment, without
// overriding variables that are already set, and parses Env. A missing file is
// not an error.
func LoadEnv(path ...string) (Env, error) {
	p := DotEnv
	if len(path) == 1 && path[0] != "" {
		p = path[0]
	}
	if err := godotenv.Load(p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
		log.Debugf("no %s file found, relying on environment variables", p)
	}
	return ParseEnv(env.ToMap(os.Environ()))
}

// ParseEnv parses Env from the given variables.
func ParseEnv(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}

	e.Tables = map[resource.Key]string{}
	for _, d := range resource.All() {
		if v := strings.TrimSpace(vars[d.EnvVar]); v != "" {
			e.Tables[d.Key] = v
		}
	}
	return e, nil
}

// Warnings lists what is missing for Airtable access. The app still runs
// without credentials; every card is empty.
func (e Env) Warnings() []string {
	var out []string
	if strings.TrimSpace(e.Token) == "" {
		out = append(out, "AIRTABLE_TOKEN is not set")
	}
	if strings.TrimSpace(e.BaseID) == "" {
		out = append(out, "AIRTABLE_BASE_ID is not set")
	}
	return out
}

// TableNames resolves the table of every resource that is not on its default.
// The environment wins over tables.<resource> in the config file.
func TableNames(e Env) map[resource.Key]string {
	out := map[resource.Key]string{}
	for _, d := range resource.All() {
		if v, ok := e.Tables[d.Key]; ok {
			out[d.Key] = v
			continue
		}
		if v, _ := GetString("tables."+string(d.Key), ""); strings.TrimSpace(v) != "" {
			out[d.Key] = strings.TrimSpace(v)
		}
	}
	return out
}

// CacheTTLs reads cache.ttl.<class> for every staleness class that is set.
// Invalid values are logged and skipped.
func CacheTTLs() map[resource.Staleness]time.Duration {
	out := map[resource.Staleness]time.Duration{}
	for _, s := range resource.Stalenesses() {
		key := "cache.ttl." + s.String()
		d, err := GetDuration(key, 0)
		if err != nil {
			log.WithError(err).Warnf("ignoring %s", key)
			continue
		}
		if d > 0 {
			out[s] = d
		}
	}
	return out
}
