// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mapper

import (
	"regexp"
	"strings"

	"github.com/staranto/vcardctl/internal/airtable"
)

// Titles used when the source leaves them blank.
const (
	DefaultAboutTitle    = "Acerca de Mí"
	DefaultContactTitle  = "Contacto"
	DefaultLocationTitle = "Ubicación"
	DefaultCTATitle      = "Colaborar"
	DefaultVideoTitle    = "Video sin título"
	DefaultGalleryAlt    = "Gallery image"

	// ProfileCard is always rendered first and so never appears in the
	// configurable order.
	ProfileCard = "ProfileCard.tsx"
)

// Profile is the header card.
type Profile struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	Company       string `json:"company"`
	Location      string `json:"location"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	BackgroundURL string `json:"backgroundUrl,omitempty"`
}

// About is a titled list of paragraphs.
type About struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

// Empty reports whether the card has nothing to show.
func (a About) Empty() bool { return len(a.Paragraphs) == 0 }

// ContactItem is one reachable channel.
type ContactItem struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value"`
	Href  string `json:"href"`
}

// Contact channel types.
const (
	ContactEmail    = "email"
	ContactPhone    = "phone"
	ContactWhatsapp = "whatsapp"
	ContactWeb      = "web"
)

// Contact is the contact card: one item per way of reaching the owner.
type Contact struct {
	Title string        `json:"title"`
	Items []ContactItem `json:"items"`
}

// Empty reports whether the card has no items.
func (c Contact) Empty() bool { return len(c.Items) == 0 }

// Item returns the first item of the given type.
func (c Contact) Item(typ string) (ContactItem, bool) {
	for _, it := range c.Items {
		if it.Type == typ {
			return it, true
		}
	}
	return ContactItem{}, false
}

// SocialLink is an active network. HasLink distinguishes "shown with a link"
// from "shown as a bare icon".
type SocialLink struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	HasLink bool   `json:"hasLink"`
}

// GalleryImage is one image attachment of the gallery.
type GalleryImage struct {
	URL  string `json:"url"`
	Alt  string `json:"alt"`
	Size int64  `json:"size,omitempty"`
}

// Video platforms.
const (
	PlatformYouTube = "youtube"
	PlatformVimeo   = "vimeo"
	PlatformOther   = "other"
)

// Video is a playable item. VideoID is empty when the link is not a
// recognizable YouTube URL, in which case URL is played directly.
type Video struct {
	URL          string `json:"videoUrl"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
	Platform     string `json:"platform"`
	EmbedURL     string `json:"embedUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Experience is one position with its formatted period.
type Experience struct {
	Period      string `json:"period"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Location is the map card. URL is the link as entered; EmbedURL is derived.
type Location struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	EmbedURL string `json:"embedUrl,omitempty"`
}

// Empty reports whether there is no map link.
func (l Location) Empty() bool { return l.URL == "" }

// Button is a labeled link.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CTA is the call-to-action card.
type CTA struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Primary     *Button `json:"primaryButton,omitempty"`
	Secondary   *Button `json:"secondaryButton,omitempty"`
}

// ThemeItem is one personalization entry, for example a background image or
// an accent color pair.
type ThemeItem struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Color    string `json:"color,omitempty"`
	Color2   string `json:"color2,omitempty"`
}

// Theme is the personalization card.
type Theme struct {
	Items []ThemeItem `json:"items"`
}

// Get finds an item by name, ignoring case and surrounding space.
func (t *Theme) Get(name string) (ThemeItem, bool) {
	if t == nil {
		return ThemeItem{}, false
	}
	name = strings.TrimSpace(name)
	for _, it := range t.Items {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return ThemeItem{}, false
}

// SelectConfig picks the configuration row: the first with a name, else the
// first, else nil.
func SelectConfig(rows []ConfigFields) *ConfigFields {
	for i := range rows {
		if strings.TrimSpace(rows[i].Nombre) != "" {
			return &rows[i]
		}
	}
	return First(rows)
}

// MapProfile builds the header from the configuration row, or nil.
func MapProfile(c *ConfigFields) *Profile {
	if c == nil {
		return nil
	}
	return &Profile{
		Name:          c.Nombre,
		Title:         c.PuestoTexto,
		AvatarURL:     firstURL(c.FotoPerfil),
		BackgroundURL: firstURL(c.FondoCabecera),
	}
}

// MapConfigAbout returns the paragraphs of the configuration's about text.
func MapConfigAbout(c *ConfigFields) []string {
	if c == nil {
		return nil
	}
	return paragraphs(c.SobreMi)
}

// MapConfigLocation returns the configuration's map link, or "".
func MapConfigLocation(c *ConfigFields) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.GoogleMaps)
}

// MapAbout builds the about card from the first SobreMi row.
func MapAbout(rows []SobreMiFields) About {
	r := First(rows)
	if r == nil {
		return About{Title: DefaultAboutTitle}
	}
	return About{
		Title:      orDefault(r.Nombre, DefaultAboutTitle),
		Paragraphs: paragraphs(r.Descripcion),
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// MapContact lists the channels that are present, in a fixed order.
func MapContact(c *ContactFields) Contact {
	if c == nil {
		return Contact{Title: DefaultContactTitle}
	}

	var items []ContactItem
	if c.Email != nil && c.Email.Email != "" {
		items = append(items, ContactItem{
			Type:  ContactEmail,
			Label: "Email",
			Value: c.Email.Email,
			Href:  "mailto:" + c.Email.Email,
		})
	}
	if strings.TrimSpace(c.Telefono) != "" {
		items = append(items, ContactItem{
			Type:  ContactPhone,
			Label: "Teléfono",
			Value: c.Telefono,
			Href:  "tel:" + nonDigits.ReplaceAllString(c.Telefono, ""),
		})
	}
	if strings.TrimSpace(c.Whatsapp) != "" {
		items = append(items, ContactItem{
			Type:  ContactWhatsapp,
			Label: "WhatsApp",
			Value: c.Whatsapp,
			Href:  "https://wa.me/" + nonDigits.ReplaceAllString(c.Whatsapp, ""),
		})
	}
	if strings.TrimSpace(c.Web) != "" {
		href := c.Web
		if !strings.HasPrefix(href, "http") {
			href = "https://" + href
		}
		items = append(items, ContactItem{
			Type:  ContactWeb,
			Label: "Sitio Web",
			Value: c.Web,
			Href:  href,
		})
	}

	return Contact{
		Title: orDefault(c.NombreTarjeta, DefaultContactTitle),
		Items: items,
	}
}

// MapSocial keeps rows whose Activo is true, in source order.
func MapSocial(rows []SocialFields) []SocialLink {
	var out []SocialLink
	for _, r := range rows {
		if !r.Activo {
			continue
		}
		out = append(out, SocialLink{
			Name:    r.Name,
			URL:     r.Link,
			HasLink: strings.TrimSpace(r.Link) != "",
		})
	}
	return out
}

// Image formats shown in the gallery. Animated GIFs are left out.
var (
	galleryExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "webp": true, "avif": true, "bmp": true, "svg": true,
	}
	galleryMIMETypes = map[string]bool{
		"image/jpeg": true, "image/jpg": true, "image/png": true, "image/webp": true,
		"image/avif": true, "image/bmp": true, "image/svg+xml": true,
	}
)

// IsGalleryImage reports whether an attachment is a still image format the
// gallery can show.
func IsGalleryImage(a airtable.Attachment) bool {
	ext := strings.ToLower(a.Filename[strings.LastIndex(a.Filename, ".")+1:])
	return galleryExtensions[ext] || galleryMIMETypes[strings.ToLower(a.Type)]
}

// MapGallery flattens the attachments of every row into one list.
func MapGallery(rows []GalleryFields) []GalleryImage {
	var out []GalleryImage
	for _, r := range rows {
		for _, a := range r.Galeria {
			if !IsGalleryImage(a) {
				continue
			}
			alt := r.Nombre
			if alt == "" {
				alt = orDefault(a.Filename, DefaultGalleryAlt)
			}
			out = append(out, GalleryImage{URL: a.URL, Alt: alt, Size: a.Size})
		}
	}
	return out
}

// MapCardOrder returns the enabled card names in source order, minus the
// profile card.
func MapCardOrder(rows []PosicionTarjetaFields) []string {
	var out []string
	for _, r := range rows {
		if !r.Activado {
			continue
		}
		name := strings.TrimSpace(r.Nombre)
		if name == "" || name == ProfileCard {
			continue
		}
		out = append(out, name)
	}
	return out
}

// MapCTA builds the call-to-action card. A button is kept only when it has
// both a label and a URL.
func MapCTA(c *ColaborarFields) *CTA {
	if c == nil {
		return nil
	}
	return &CTA{
		Title:       orDefault(c.Titulo, DefaultCTATitle),
		Description: c.Texto,
		Primary:     button(c.NomBtnA, c.URLA),
		Secondary:   button(c.NomBtnB, c.URLB),
	}
}

// MapTheme collects personalization rows. Rows without a name are skipped.
func MapTheme(rows []PersonalizacionFields) *Theme {
	var items []ThemeItem
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		items = append(items, ThemeItem{
			Name:     name,
			ImageURL: firstURL(r.Imagen),
			Color:    strings.TrimSpace(r.Color),
			Color2:   strings.TrimSpace(r.Color2),
		})
	}
	if len(items) == 0 {
		return nil
	}
	return &Theme{Items: items}
}

func button(label, url string) *Button {
	label, url = strings.TrimSpace(label), strings.TrimSpace(url)
	if label == "" || url == "" {
		return nil
	}
	return &Button{Label: label, URL: url}
}

func firstURL(atts []airtable.Attachment) string {
	if len(atts) == 0 {
		return ""
	}
	return atts[0].URL
}

func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
