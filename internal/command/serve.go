// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/server"
)

func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	svc, client := NewService(GetMeta(cmd))
	if err := client.Configured(); err != nil {
		log.WithError(err).Warn("serving empty cards")
	}

	if cmd.Bool("prefetch") {
		go func() {
			if err := svc.Prefetch(ctx); err != nil {
				log.WithError(err).Warn("prefetch")
			}
		}()
	}

	var opts []server.Option
	if cmd.Bool("enhanced") {
		opts = append(opts, server.WithEnhancedVCard())
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(svc, opts...).ListenAndServe(ctx, cmd.String("addr"))
}

func ServeCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "serve",
		Usage:     "serve the cards over HTTP",
		UsageText: `vcardctl serve [--addr :8080]`,
		Examples: [][2]string{
			{`vcardctl serve`, "serve on the default address"},
			{`vcardctl serve --addr :9090 --prefetch=false`, "another port, cold cache"},
		},
		Meta: m,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("serve", cfg.Source, &cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				Sources: cli.NewValueSourceChain(cli.EnvVar("VCARD_ADDR")),
				Value:   server.DefaultAddr,
				Validator: func(value string) error {
					return FlagValidators(value, AddrValidator)
				},
			}),
			&cli.BoolFlag{
				Name:  "prefetch",
				Usage: "warm the cache at startup",
				Value: true,
			},
			newEnhancedFlag(),
		},
		Action: ServeCommandAction,
	}).Build()
}
