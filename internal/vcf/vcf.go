// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package vcf

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/emersion/go-vcard"

	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/mapper"
)

// MIMEType is the content type a vCard is served with.
const MIMEType = "text/vcard; charset=utf-8"

// DefaultFileName is used when the contact has no usable name.
const DefaultFileName = "contacto"

const note = "Tarjeta de presentación digital. Guarda este contacto para tener toda mi información siempre a mano."

var categories = []string{"Business Card", "Digital Card"}

// Data is the content of a vCard. Only Name is required.
type Data struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	Photo   string `json:"photo,omitempty"`
}

type options struct {
	enhanced bool
}

type Option func(*options)

// WithEnhanced adds the CATEGORIES and NOTE lines used for wallet style
// cards.
func WithEnhanced() Option {
	return func(o *options) { o.enhanced = true }
}

// FromCards assembles Data from the mapped cards. Any argument may be nil or
// empty. The location title becomes the work address unless it is the
// default heading.
func FromCards(p *mapper.Profile, c mapper.Contact, l mapper.Location) Data {
	var d Data
	if p != nil {
		d.Name = strings.TrimSpace(p.Name)
		d.Title = strings.TrimSpace(p.Title)
		d.Company = strings.TrimSpace(p.Company)
		d.Address = strings.TrimSpace(p.Location)
		d.Photo = p.AvatarURL
	}
	if it, ok := c.Item(mapper.ContactPhone); ok {
		d.Phone = it.Value
	}
	if it, ok := c.Item(mapper.ContactEmail); ok {
		d.Email = it.Value
	}
	if it, ok := c.Item(mapper.ContactWeb); ok {
		d.Website = it.Href
	}
	if d.Address == "" && l.Title != "" && l.Title != mapper.DefaultLocationTitle {
		d.Address = l.Title
	}
	return d
}

// Load reads the profile, contact and location cards from svc.
func Load(ctx context.Context, svc *card.Service) (Data, error) {
	p := svc.UseProfile(ctx)
	c := svc.UseContact(ctx)
	l := svc.UseLocation(ctx)
	d := FromCards(p.Data, c.Data, l.Data)
	if d.Name == "" {
		return d, ErrNoName(p.Err)
	}
	return d, nil
}

// Version is the vCard version written.
const Version = "3.0"

// Card builds the vCard of d.
func Card(d Data, opts ...Option) vcard.Card {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	first, last := splitName(d.Name)

	c := vcard.Card{}
	c.SetValue(vcard.FieldVersion, Version)
	c.SetValue(vcard.FieldFormattedName, text(d.Name))
	c.SetValue(vcard.FieldName, structured(last, first, "", "", ""))
	if d.Company != "" {
		c.SetValue(vcard.FieldOrganization, text(d.Company))
	}
	if d.Title != "" {
		c.SetValue(vcard.FieldTitle, text(d.Title))
	}
	if d.Phone != "" {
		c.Add(vcard.FieldTelephone, typed(d.Phone, "CELL"))
	}
	if d.Email != "" {
		c.Add(vcard.FieldEmail, typed(d.Email, "INTERNET"))
	}
	if d.Website != "" {
		c.SetValue(vcard.FieldURL, d.Website)
	}
	if d.Address != "" {
		c.Add(vcard.FieldAddress, typed(structured("", "", d.Address, "", "", "", ""), "WORK"))
	}
	if d.Photo != "" {
		c.Add(vcard.FieldPhoto, &vcard.Field{
			Value:  d.Photo,
			Params: vcard.Params{vcard.ParamValue: {"URL"}},
		})
	}
	if o.enhanced {
		for _, cat := range categories {
			c.AddValue(vcard.FieldCategories, cat)
		}
		c.SetValue(vcard.FieldNote, note)
	}
	return c
}

// Write encodes d to w. Lines end in CRLF.
func Write(w io.Writer, d Data, opts ...Option) error {
	return vcard.NewEncoder(w).Encode(Card(d, opts...))
}

// Generate renders d as a vCard.
func Generate(d Data, opts ...Option) string {
	var b strings.Builder
	if err := Write(&b, d, opts...); err != nil {
		log.WithError(err).Error("failed to encode vcard")
	}
	return b.String()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// FileName returns a file name for d, without extension.
func FileName(d Data) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(d.Name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultFileName
	}
	return s
}

// splitName takes the first word as the given name and the rest as the
// family name.
func splitName(name string) (first, last string) {
	parts := strings.Split(name, " ")
	first = parts[0]
	last = strings.Join(parts[1:], " ")
	return first, last
}

func typed(value, typ string) *vcard.Field {
	return &vcard.Field{Value: value, Params: vcard.Params{vcard.ParamType: {typ}}}
}

// text normalizes line breaks. The encoder escapes the rest.
func text(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// structured joins the components of N or ADR. The encoder does not escape
// semicolons, so a semicolon inside a component becomes a comma.
func structured(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(text(p), ";", ",")
	}
	return strings.Join(parts, ";")
}
