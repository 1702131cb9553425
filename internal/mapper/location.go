// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mapper

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultMapZoom = 11
	placeMapZoom   = 12
	zoomOffset     = 3
)

// shortLinkEmbed is the public embed form used for goo.gl links, which cannot
// be expanded without a request.
const shortLinkEmbed = "https://www.google.com/maps/embed?pb=!1m18!1m12!1m3!1d3!2d0!3d0!2m3!1f0!2f0!3f0" +
	"!3m2!1i1024!2i768!4f13.1!3m3!1m2!1s0x0%3A0x0!2z!5e0!3m2!1sen!2s!4v1234567890!5m2!1sen!2s&q="

var (
	coordPattern = regexp.MustCompile(`@(-?\d+\.?\d*),(-?\d+\.?\d*),?(\d+\.?\d*)?z?`)
	placePattern = regexp.MustCompile(`/place/([^/@]+)`)
	queryPattern = regexp.MustCompile(`[?&]q=([^&]+)`)
	dataPattern  = regexp.MustCompile(`!3d(-?\d+\.?\d*)!4d(-?\d+\.?\d*)`)
)

// MapLocation builds the location card from the first Ubicacion row.
func MapLocation(u *UbicacionFields) Location {
	if u == nil {
		return Location{Title: DefaultLocationTitle}
	}
	l := Location{
		Title: orDefault(u.Nombre, DefaultLocationTitle),
		URL:   strings.TrimSpace(u.URLNavegador),
	}
	if l.URL != "" {
		l.EmbedURL = EmbedMapURL(l.URL)
	}
	return l
}

// EmbedMapURL turns a Google Maps link into something an iframe can show.
// Forms are tried in order: embed URLs pass through, short links are wrapped,
// then @lat,lng,zoom, /place/name, ?q=, and !3d!4d coordinates. Anything else
// becomes a search for the whole link.
func EmbedMapURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "google.com/maps/embed") {
		return raw
	}
	if strings.Contains(raw, "goo.gl") {
		return shortLinkEmbed + encodeURIComponent(raw)
	}

	if m := coordPattern.FindStringSubmatch(raw); m != nil {
		zoom := float64(defaultMapZoom)
		if m[3] != "" {
			if z, err := strconv.ParseFloat(m[3], 64); err == nil {
				zoom = z
			}
		}
		adjusted := max(1, int(math.Floor(zoom))-zoomOffset)
		return "https://maps.google.com/maps?q=" + m[1] + "," + m[2] + "&z=" + strconv.Itoa(adjusted) + "&output=embed"
	}

	if m := placePattern.FindStringSubmatch(raw); m != nil {
		name, err := url.PathUnescape(strings.ReplaceAll(m[1], "+", " "))
		if err != nil {
			return searchEmbed(raw)
		}
		return searchEmbed(name)
	}

	if m := queryPattern.FindStringSubmatch(raw); m != nil {
		q, err := url.PathUnescape(m[1])
		if err != nil {
			return searchEmbed(raw)
		}
		return searchEmbed(q)
	}

	if m := dataPattern.FindStringSubmatch(raw); m != nil {
		return placeEmbed(m[1] + "," + m[2])
	}

	return searchEmbed(raw)
}

func searchEmbed(q string) string {
	return placeEmbed(encodeURIComponent(q))
}

func placeEmbed(q string) string {
	return "https://maps.google.com/maps?q=" + q + "&t=&z=" + strconv.Itoa(placeMapZoom) + "&ie=UTF8&iwloc=&output=embed"
}

// encodeURIComponent escapes everything except letters, digits and
// -_.!~*'() so the result can sit inside a query value.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
