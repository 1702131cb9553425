// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
)

// renderedCard is one entry of the json and yaml forms of show.
type renderedCard struct {
	Card card.Name `json:"card"`
	Data any       `json:"data"`
}

// collectCards resolves every card of the layout. Cards with nothing to show
// are left out.
func collectCards(ctx context.Context, svc *card.Service) []renderedCard {
	var cards []renderedCard
	for _, n := range svc.Layout(ctx) {
		st, err := svc.Card(ctx, n)
		if err != nil {
			log.WithError(err).Warnf("skipping card %s", n)
			continue
		}
		if st.Err != nil {
			log.WithError(st.Err).Debugf("card %s", n)
		}
		if st.Data == nil {
			continue
		}
		cards = append(cards, renderedCard{Card: n, Data: st.Data})
	}
	return cards
}

func ShowCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	svc, client := NewService(m)

	if err := client.Configured(); err != nil {
		log.WithError(err).Warn("showing empty cards")
	} else if err := svc.Prefetch(ctx); err != nil {
		// Cards of the resources that did load still render.
		log.WithError(err).Warn("prefetch")
	}

	opts := output.FromCommand(cmd)
	cards := collectCards(ctx, svc)

	if opts.Format != output.FormatText {
		if cards == nil {
			cards = []renderedCard{}
		}
		return output.RenderCard(out(cmd), "cards", cards, opts)
	}

	var errs []error
	for _, c := range cards {
		errs = append(errs, output.RenderCard(out(cmd), string(c.Card), c.Data, opts))
	}
	return errors.Join(errs...)
}

func ShowCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "show",
		Usage:     "render every card in layout order",
		UsageText: `vcardctl show [options]`,
		Examples: [][2]string{
			{`vcardctl show`, "render every card in layout order"},
			{`vcardctl show -o json`, "the cards as one JSON document"},
		},
		Meta:    m,
		Global:  true,
		MaxArgs: 0,
		Action:  ShowCommandAction,
	}).Build()
}
