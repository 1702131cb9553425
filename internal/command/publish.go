// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/aws"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/vcf"
)

// cardsObject is the name the rendered cards are published under.
const cardsObject = "cards.json"

// publishObjects renders the vCard and every card for upload.
func publishObjects(ctx context.Context, cmd *cli.Command) ([]aws.Object, error) {
	svc, _ := NewService(GetMeta(cmd))
	if err := svc.Prefetch(ctx); err != nil {
		log.WithError(err).Warn("prefetch")
	}

	d, err := vcf.Load(ctx, svc)
	if err != nil {
		return nil, err
	}

	cards := collectCards(ctx, svc)
	if cards == nil {
		cards = []renderedCard{}
	}
	b, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cards: %w", err)
	}

	cacheControl := fmt.Sprintf("max-age=%d", cmd.Int("max-age"))
	return []aws.Object{
		{
			Name:         vcf.FileName(d) + ".vcf",
			Body:         []byte(vcf.Generate(d, vcfOptions(cmd)...)),
			ContentType:  vcf.MIMEType,
			CacheControl: cacheControl,
		},
		{
			Name:         cardsObject,
			Body:         b,
			ContentType:  "application/json",
			CacheControl: cacheControl,
		},
	}, nil
}

func PublishCommandAction(ctx context.Context, cmd *cli.Command) error {
	objs, err := publishObjects(ctx, cmd)
	if err != nil {
		return err
	}

	var opts []aws.Option
	if p := cmd.String("profile"); p != "" {
		opts = append(opts, aws.WithProfile(p))
	}
	if r := cmd.String("region"); r != "" {
		opts = append(opts, aws.WithRegion(r))
	}
	awsCfg, err := aws.LoadAWSConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	pub, err := aws.NewPublisher(aws.NewS3(awsCfg, aws.WithS3Endpoint(cmd.String("endpoint"))),
		cmd.String("bucket"), cmd.String("prefix"))
	if err != nil {
		return err
	}

	uris, err := pub.Put(ctx, objs...)
	for _, u := range uris {
		fmt.Fprintln(out(cmd), u)
	}
	return err
}

func PublishCommandBuilder(_ *cli.Command, m meta.Meta, _ []cli.Flag) *cli.Command {
	return (&CommandBuilder{
		Name:      "publish",
		Usage:     "upload the vCard and cards.json to S3",
		UsageText: `vcardctl publish --bucket BUCKET [--prefix PREFIX] [options]`,
		Examples: [][2]string{
			{`vcardctl publish --bucket cards --prefix ana`, "upload the vCard and cards.json"},
			{`vcardctl publish --bucket cards --endpoint http://localhost:9000`, "publish to an S3 compatible store"},
		},
		Meta: m,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("publish", cfg.Source, &cli.StringFlag{
				Name:    "bucket",
				Usage:   "S3 bucket",
				Sources: cli.NewValueSourceChain(cli.EnvVar("VCARD_BUCKET")),
			}),
			NameSpacedValueChainFlagFromConfigFile("publish", cfg.Source, &cli.StringFlag{
				Name:    "prefix",
				Usage:   "key prefix inside the bucket",
				Sources: cli.NewValueSourceChain(),
			}),
			&cli.StringFlag{
				Name:  "region",
				Usage: "AWS region, default from the AWS environment",
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "AWS shared config profile",
				Sources: cli.NewValueSourceChain(cli.EnvVar("AWS_PROFILE")),
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "S3 compatible endpoint, e.g. http://localhost:9000",
			},
			&cli.IntFlag{
				Name:  "max-age",
				Usage: "Cache-Control max-age of the uploaded objects, in seconds",
				Value: 300,
			},
			newEnhancedFlag(),
		},
		Action: PublishCommandAction,
	}).Build()
}
