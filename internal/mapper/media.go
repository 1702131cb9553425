// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mapper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	presentLabel     = "Presente"
	unspecifiedLabel = "Fecha no especificada"
)

var (
	youTubePattern = regexp.MustCompile(`^.*(youtu.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)
	vimeoPattern   = regexp.MustCompile(`vimeo\.com/(\d+)`)
)

// YouTubeID extracts the 11 character video id from watch, share and embed
// URLs. It returns "" for anything else.
func YouTubeID(u string) string {
	m := youTubePattern.FindStringSubmatch(u)
	if m == nil || len(m[2]) != 11 { //nolint:mnd
		return ""
	}
	return m[2]
}

// VimeoID extracts the numeric id of a vimeo.com URL, or "".
func VimeoID(u string) string {
	if m := vimeoPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// Platform classifies a video URL by host.
func Platform(u string) string {
	switch {
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(u, "vimeo.com"):
		return PlatformVimeo
	default:
		return PlatformOther
	}
}

// MapVideos keeps rows with a link and derives the embed details.
func MapVideos(rows []VideoFields) []Video {
	var out []Video
	for _, r := range rows {
		if strings.TrimSpace(r.Link) == "" {
			continue
		}

		v := Video{
			URL:      r.Link,
			Title:    orDefault(r.Nombre, DefaultVideoTitle),
			VideoID:  YouTubeID(r.Link),
			Platform: Platform(r.Link),
		}
		if strings.TrimSpace(r.Descripcion) != "" {
			v.Description = r.Descripcion
		}

		switch {
		case v.VideoID != "":
			v.EmbedURL = "https://www.youtube.com/embed/" + v.VideoID
			v.ThumbnailURL = "https://img.youtube.com/vi/" + v.VideoID + "/mqdefault.jpg"
		case v.Platform == PlatformVimeo && VimeoID(r.Link) != "":
			v.EmbedURL = "https://player.vimeo.com/video/" + VimeoID(r.Link)
		}
		out = append(out, v)
	}
	return out
}

// MapExperience keeps rows with a role name and formats their period.
func MapExperience(rows []ExperienceFields) []Experience {
	var out []Experience
	for _, r := range rows {
		if strings.TrimSpace(r.NombrePuesto) == "" {
			continue
		}
		out = append(out, Experience{
			Period:      Period(r.FechaInicio, r.FechaFinal),
			Title:       r.NombrePuesto,
			Description: r.DescripcionPuesto,
		})
	}
	return out
}

// Period renders "2017 - 2020", "2020 - Presente" or the unspecified label. An
// unparseable date counts as missing.
func Period(start, end string) string {
	s, ok := parseDate(start)
	if !ok {
		return unspecifiedLabel
	}
	e, ok := parseDate(end)
	if !ok {
		return strconv.Itoa(s.Year()) + " - " + presentLabel
	}
	return strconv.Itoa(s.Year()) + " - " + strconv.Itoa(e.Year())
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
