// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/attrs"
	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/config"
	"github.com/staranto/vcardctl/internal/differ"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
	"github.com/staranto/vcardctl/internal/querycache"
	"github.com/staranto/vcardctl/internal/reqcache"
	"github.com/staranto/vcardctl/internal/resource"
)

// ShortCircuitTLDR checks the --tldr flag and, if present, runs
// `tldr vcardctl <subcmd>`. Without tldr on PATH the examples of the command
// are printed instead. Returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if !cmd.Bool("tldr") {
		return false
	}
	if pathHas("tldr") {
		c := exec.CommandContext(ctx, "tldr", "vcardctl", subcmd)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err == nil {
			return true
		}
	}
	output.DumpExamples(ctx, out(cmd), Examples(cmd))
	return true
}

// Examples returns the usage examples stored in the command's Metadata.
func Examples(cmd *cli.Command) [][2]string {
	if cmd == nil || cmd.Metadata == nil {
		return nil
	}
	ex, _ := cmd.Metadata["examples"].([][2]string)
	return ex
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// out is where a command writes its results. Tests swap the root writer.
func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// CommandBuilder constructs a cli.Command for a subcommand using a consistent
// pattern: metadata, the tldr flag, optional global flags, positional arg
// checks and the config namespace.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
	// Examples are {command line, description} pairs shown by --tldr.
	Examples [][2]string
	// Global adds the output, attrs, filter and sort flags.
	Global bool
	// MinArgs and MaxArgs bound the positional args. MaxArgs < 0 is unbounded.
	MinArgs int
	MaxArgs int
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{newTLDRFlag()}, cb.Flags...)
	if cb.Global {
		flags = append(flags, NewGlobalFlags(cb.Name)...)
	}

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta":     cb.Meta,
			"examples": cb.Examples,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			config.SetNamespace(cb.Name)
			if c.Bool("tldr") {
				return ctx, nil
			}
			if err := ArgCountValidator(c, cb.MinArgs, cb.MaxArgs); err != nil {
				return ctx, err
			}
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if ShortCircuitTLDR(ctx, c, cb.Name) {
				return nil
			}
			log.Debugf("executing %s %v", cb.Name, c.Args().Slice())
			return cb.Action(ctx, c)
		},
	}
}

// NewClient builds the Airtable client from the environment and the table
// overrides of the config file.
func NewClient(m meta.Meta) *airtable.Client {
	return airtable.NewClient(m.Env.Token, m.Env.BaseID,
		airtable.WithBaseURL(m.Env.APIURL),
		airtable.WithTableNames(config.TableNames(m.Env)),
	)
}

// NewService wires the client, the request and query caches and the card
// service.
func NewService(m meta.Meta) (*card.Service, *airtable.Client) {
	client := NewClient(m)
	qc := querycache.New(client, reqcache.New(),
		querycache.WithTTLs(config.CacheTTLs()),
		querycache.WithOnRefresh(logRefresh),
	)
	return card.NewService(qc, client), client
}

// logRefresh reports what changed when a cached resource is refetched.
func logRefresh(res resource.Key, old, cur []airtable.Record) {
	d, err := differ.Records(old, cur)
	if err != nil {
		log.WithError(err).Debugf("diff %s", res)
		return
	}
	if d.Modified() {
		log.WithField("resource", res).Infof("refreshed %s", d.Summary())
	}
}

// resourceArg parses positional arg i as a resource.
func resourceArg(cmd *cli.Command, i int) (resource.Key, error) {
	return resource.Parse(cmd.Args().Get(i))
}

// friendly translates err with the identifiers of the call that failed.
func friendly(c *airtable.Client, res resource.Key, op string, err error) error {
	table, _ := c.TableName(res)
	return airtable.Friendly(err, airtable.ErrorContext{
		Base:      c.BaseID(),
		Table:     table,
		Resource:  res,
		Operation: op,
	})
}

// ParseFieldArgs turns k=v args into a fields object. Values that look like
// booleans or numbers are sent as such, "k=" clears the field and "k:=" takes
// raw JSON, e.g. 'Etiquetas:=["go","cli"]'.
func ParseFieldArgs(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, a := range args {
		if k, v, ok := strings.Cut(a, ":="); ok && !strings.Contains(k, "=") {
			var raw any
			if err := json.Unmarshal([]byte(v), &raw); err != nil {
				return nil, fmt.Errorf("invalid JSON for %s: %w", k, err)
			}
			fields[strings.TrimSpace(k)] = raw
			continue
		}

		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		fields[k] = parseValue(v)
	}
	if len(fields) == 0 {
		return nil, errors.New("no fields given")
	}
	return fields, nil
}

var numberRegex = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?$`)

func parseValue(v string) any {
	switch v {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	// Leading zeros and + signs are kept as text so phone numbers survive.
	if numberRegex.MatchString(v) {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}

// fieldNames lists the field names of recs in first-seen order. They are the
// default columns when --attrs is not given.
func fieldNames(recs []airtable.Record) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range recs {
		gjson.ParseBytes(r.Fields).ForEach(func(k, _ gjson.Result) bool {
			if n := k.String(); !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
			return true
		})
	}
	return names
}

// recordAttrs is ".id" followed by every field, unless --attrs names the
// columns.
func recordAttrs(cmd *cli.Command, recs []airtable.Record) attrs.AttrList {
	defaults := []string{".id"}
	if cmd.String("attrs") == "" {
		for _, n := range fieldNames(recs) {
			// Commas and colons would split the spec.
			if !strings.ContainsAny(n, ",:") {
				defaults = append(defaults, n)
			}
		}
	}
	return BuildAttrs(cmd, defaults...)
}
