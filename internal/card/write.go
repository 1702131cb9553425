// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/apex/log"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/mapper"
	"github.com/staranto/vcardctl/internal/resource"
)

// rowWriter creates (empty id) or updates a record through the typed table of
// res. typed is false when fields do not fit the row type and nothing was
// sent.
type rowWriter func(ctx context.Context, st airtable.Store, res resource.Key, id string,
	fields map[string]any) (rec *airtable.Record, typed bool, err error)

var rowWriters = map[resource.Key]rowWriter{
	resource.Config:          writeRow(mapper.DecodeConfig),
	resource.Contact:         writeRow(mapper.DecodeContact),
	resource.Social:          writeRow(mapper.DecodeSocial),
	resource.Gallery:         writeRow(mapper.DecodeGallery),
	resource.Videos:          writeRow(mapper.DecodeVideo),
	resource.Experience:      writeRow(mapper.DecodeExperience),
	resource.SobreMi:         writeRow(mapper.DecodeSobreMi),
	resource.Ubicacion:       writeRow(mapper.DecodeUbicacion),
	resource.PosicionTarjeta: writeRow(mapper.DecodePosicionTarjeta),
	resource.Colaborar:       writeRow(mapper.DecodeColaborar),
	resource.Personalizacion: writeRow(mapper.DecodePersonalizacion),
}

func writeRow[F any](decode func(airtable.Record) F) rowWriter {
	return func(ctx context.Context, st airtable.Store, res resource.Key, id string,
		fields map[string]any) (*airtable.Record, bool, error) {
		row, ok := toRow[F](fields)
		if !ok {
			return nil, false, nil
		}

		t := airtable.NewTable(st, res, decode)
		var out *airtable.Typed[F]
		var err error
		if id == "" {
			out, err = t.Create(ctx, row)
		} else {
			out, err = t.Update(ctx, id, row)
		}
		if err != nil {
			return nil, true, err
		}
		return &out.Raw, true, nil
	}
}

// toRow decodes fields into F when F carries every field through unchanged.
// Unknown names, mismatched types and values the row would omit, such as
// false or "", leave ok false.
func toRow[F any](fields map[string]any) (row F, ok bool) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return row, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&row); err != nil {
		return row, false
	}

	back, err := json.Marshal(row)
	if err != nil {
		return row, false
	}
	var want, got map[string]json.RawMessage
	if json.Unmarshal(raw, &want) != nil || json.Unmarshal(back, &got) != nil || len(want) != len(got) {
		return row, false
	}
	for k, v := range want {
		if !bytes.Equal(got[k], v) {
			return row, false
		}
	}
	return row, true
}

// CreateFields adds a record from field/value pairs. Pairs that fit the row
// type of res are written through its typed table, anything else is sent as
// given.
func (s *Service) CreateFields(ctx context.Context, res resource.Key, fields map[string]any) (*airtable.Record, error) {
	return s.writeFields(ctx, res, "", fields)
}

// UpdateFields is CreateFields for an existing record.
func (s *Service) UpdateFields(ctx context.Context, res resource.Key, id string, fields map[string]any) (*airtable.Record, error) {
	return s.writeFields(ctx, res, id, fields)
}

func (s *Service) writeFields(ctx context.Context, res resource.Key, id string, fields map[string]any) (*airtable.Record, error) {
	if s.w == nil {
		return nil, ErrReadOnly
	}
	if w, ok := rowWriters[res]; ok {
		rec, typed, err := w(ctx, s.w, res, id, fields)
		if typed {
			if err != nil {
				return nil, err
			}
			s.qc.InvalidateResource(res)
			return rec, nil
		}
		log.Debugf("writing %s as untyped fields", res)
	}

	if id == "" {
		return s.Create(ctx, res, fields)
	}
	return s.Update(ctx, res, id, fields)
}
