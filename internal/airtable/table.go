// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package airtable

import (
	"context"
	"time"

	"github.com/staranto/vcardctl/internal/resource"
)

// Typed is a Record whose fields have been decoded into F.
type Typed[F any] struct {
	ID          string
	CreatedTime time.Time
	Fields      F
	// Raw is the record as Airtable returned it.
	Raw Record
}

// Store is the record API a Table runs on. *Client implements it.
type Store interface {
	List(ctx context.Context, res resource.Key, opts ListOptions) ([]Record, error)
	Find(ctx context.Context, res resource.Key, formula string) ([]Record, error)
	Get(ctx context.Context, res resource.Key, id string) *Record
	Create(ctx context.Context, res resource.Key, fields any) (*Record, error)
	Update(ctx context.Context, res resource.Key, id string, fields any) (*Record, error)
	Delete(ctx context.Context, res resource.Key, id string) bool
}

// Decoder turns a raw record into a field struct. Decoders must not fail;
// fields of unexpected shape decode to their zero value.
type Decoder[F any] func(Record) F

// Table is a strongly typed accessor for one resource. Writes marshal F with
// its json tags; reads go through the decoder.
type Table[F any] struct {
	store  Store
	res    resource.Key
	decode Decoder[F]
}

// NewTable binds a resource to its field type.
func NewTable[F any](s Store, res resource.Key, decode func(Record) F) *Table[F] {
	return &Table[F]{store: s, res: res, decode: decode}
}

// Resource returns the resource the table is bound to.
func (t *Table[F]) Resource() resource.Key { return t.res }

// List returns every record, optionally sorted.
func (t *Table[F]) List(ctx context.Context, opts ListOptions) ([]Typed[F], error) {
	recs, err := t.store.List(ctx, t.res, opts)
	if err != nil {
		return nil, err
	}
	return t.typed(recs), nil
}

// Find returns the records matching formula.
func (t *Table[F]) Find(ctx context.Context, formula string) ([]Typed[F], error) {
	recs, err := t.store.Find(ctx, t.res, formula)
	if err != nil {
		return nil, err
	}
	return t.typed(recs), nil
}

// Get returns one record or nil.
func (t *Table[F]) Get(ctx context.Context, id string) *Typed[F] {
	rec := t.store.Get(ctx, t.res, id)
	if rec == nil {
		return nil
	}
	out := t.one(*rec)
	return &out
}

// Create adds a record.
func (t *Table[F]) Create(ctx context.Context, fields F) (*Typed[F], error) {
	rec, err := t.store.Create(ctx, t.res, fields)
	if err != nil {
		return nil, err
	}
	out := t.one(*rec)
	return &out, nil
}

// Update patches a record with the non-empty fields of F.
func (t *Table[F]) Update(ctx context.Context, id string, fields F) (*Typed[F], error) {
	rec, err := t.store.Update(ctx, t.res, id, fields)
	if err != nil {
		return nil, err
	}
	out := t.one(*rec)
	return &out, nil
}

// Delete removes a record.
func (t *Table[F]) Delete(ctx context.Context, id string) bool {
	return t.store.Delete(ctx, t.res, id)
}

func (t *Table[F]) typed(recs []Record) []Typed[F] {
	out := make([]Typed[F], 0, len(recs))
	for _, r := range recs {
		out = append(out, t.one(r))
	}
	return out
}

func (t *Table[F]) one(r Record) Typed[F] {
	return Typed[F]{ID: r.ID, CreatedTime: r.CreatedTime, Fields: t.decode(r), Raw: r}
}
