// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/output"
)

func CardCommandAction(ctx context.Context, cmd *cli.Command) error {
	n, err := card.ParseName(cmd.Args().First())
	if err != nil {
		return err
	}

	svc, client := NewService(GetMeta(cmd))
	st, err := svc.Card(ctx, n)
	if err != nil {
		return err
	}

	// An empty card is normal. A card that is empty because the table can't be
	// read is not.
	if st.Data == nil && card.IsPersistent(st.Err) {
		return friendly(client, n.Resource(), "read", st.Err)
	}

	return output.RenderCard(out(cmd), string(n), st.Data, output.FromCommand(cmd))
}

func CardCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "card",
		Usage:     "render one card",
		UsageText: `vcardctl card <card> [options]`,
		Examples: [][2]string{
			{`vcardctl card contact`, "render the contact card"},
			{`vcardctl card GalleryCard.tsx -o yaml`, "a card by component name, as YAML"},
		},
		Meta:    m,
		Global:  true,
		MinArgs: 1,
		MaxArgs: 1,
		Action:  CardCommandAction,
	}).Build()
}
