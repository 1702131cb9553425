// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"fmt"
	"strings"

	"github.com/staranto/vcardctl/internal/resource"
)

// Name identifies a rendered card.
type Name string

const (
	Profile    Name = "profile"
	About      Name = "about"
	Contact    Name = "contact"
	Social     Name = "social"
	Gallery    Name = "gallery"
	Videos     Name = "videos"
	Experience Name = "experience"
	Location   Name = "location"
	CTA        Name = "cta"
	Theme      Name = "theme"
)

// DefaultOrder is used when the ordering table is empty or unreadable.
// Profile is not part of it; it always comes first.
var DefaultOrder = []Name{About, Contact, Social, Gallery, Videos, Experience, Location, CTA}

// Names lists every card, including the non-visual theme.
func Names() []Name {
	return append([]Name{Profile}, append(append([]Name{}, DefaultOrder...), Theme)...)
}

// aliases maps component and resource names onto cards.
var aliases = map[string]Name{
	"video":           Videos,
	"sobremi":         About,
	"ubicacion":       Location,
	"colaborar":       CTA,
	"personalizacion": Theme,
	"redes":           Social,
	"galeria":         Gallery,
	"contacto":        Contact,
	"experiencia":     Experience,
	"config":          Profile,
	"configuracion":   Profile,
}

// ParseName accepts a card name ("gallery"), a component name
// ("GalleryCard.tsx") or a resource name ("ubicacion").
func ParseName(s string) (Name, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.TrimSuffix(n, ".tsx")
	if n != "card" {
		n = strings.TrimSuffix(n, "card")
	}

	for _, c := range Names() {
		if n == string(c) {
			return c, nil
		}
	}
	if c, ok := aliases[n]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown card %q", s)
}

// Resource returns the resource that primarily backs the card.
func (n Name) Resource() resource.Key {
	switch n {
	case Profile:
		return resource.Config
	case About:
		return resource.SobreMi
	case Contact:
		return resource.Contact
	case Social:
		return resource.Social
	case Gallery:
		return resource.Gallery
	case Videos:
		return resource.Videos
	case Experience:
		return resource.Experience
	case Location:
		return resource.Ubicacion
	case CTA:
		return resource.Colaborar
	case Theme:
		return resource.Personalizacion
	}
	return ""
}
