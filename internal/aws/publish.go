// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
)

// ErrNoBucket is returned when publishing without a bucket.
var ErrNoBucket = errors.New("no bucket given")

// Putter is the part of the S3 client used for publishing.
type Putter interface {
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

// Object is one file to publish.
type Object struct {
	Name         string
	Body         []byte
	ContentType  string
	CacheControl string
}

// Publisher uploads objects under a bucket prefix.
type Publisher struct {
	client Putter
	bucket string
	prefix string
}

func NewPublisher(client Putter, bucket, prefix string) (*Publisher, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, ErrNoBucket
	}
	return &Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Key returns the object key name is stored under.
func (p *Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Put uploads every object and returns their s3:// URIs in order. It stops at
// the first failure.
func (p *Publisher) Put(ctx context.Context, objs ...Object) ([]string, error) {
	uris := make([]string, 0, len(objs))
	for _, o := range objs {
		key := p.Key(o.Name)
		in := &s3v2.PutObjectInput{
			Bucket:      awsv2.String(p.bucket),
			Key:         awsv2.String(key),
			Body:        bytes.NewReader(o.Body),
			ContentType: awsv2.String(o.ContentType),
		}
		if o.CacheControl != "" {
			in.CacheControl = awsv2.String(o.CacheControl)
		}

		if _, err := p.client.PutObject(ctx, in); err != nil {
			return uris, fmt.Errorf("failed to put s3://%s/%s: %w", p.bucket, key, err)
		}

		uri := fmt.Sprintf("s3://%s/%s", p.bucket, key)
		log.Debugf("published %s (%s)", uri, humanize.Bytes(uint64(len(o.Body))))
		uris = append(uris, uri)
	}
	return uris, nil
}
