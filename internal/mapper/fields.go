// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mapper

import (
	"github.com/staranto/vcardctl/internal/airtable"
)

// The field structs below are the expected shape of each table. The json tags
// are the Airtable field names and are used by typed writes, see
// card.Service.CreateFields. Reads go through the Decode functions, which
// never fail: a field that is missing or of the wrong type decodes to its zero
// value.

// ConfigFields is a row of Configuracion, which holds the profile header and
// the fallback about text and map link.
type ConfigFields struct {
	Nombre        string                `json:"Nombre,omitempty"`
	PuestoTexto   string                `json:"Puesto/Texto,omitempty"`
	FondoCabecera []airtable.Attachment `json:"FondoCabecera,omitempty"`
	FotoPerfil    []airtable.Attachment `json:"FotoPerfil,omitempty"`
	SobreMi       string                `json:"SobreMi,omitempty"`
	GoogleMaps    string                `json:"GoogleMaps,omitempty"`
}

// DecodeConfig decodes a Configuracion row.
func DecodeConfig(r airtable.Record) ConfigFields {
	return ConfigFields{
		Nombre:        r.String("Nombre"),
		PuestoTexto:   r.String("Puesto/Texto"),
		FondoCabecera: r.Attachments("FondoCabecera"),
		FotoPerfil:    r.Attachments("FotoPerfil"),
		SobreMi:       r.String("SobreMi"),
		GoogleMaps:    r.String("GoogleMaps"),
	}
}

// ContactFields is a row of Contacto. Email is a collaborator field.
type ContactFields struct {
	NombreTarjeta string                 `json:"NombreTarjeta,omitempty"`
	Email         *airtable.Collaborator `json:"Email,omitempty"`
	Telefono      string                 `json:"Telefono,omitempty"`
	Whatsapp      string                 `json:"Whatsapp,omitempty"`
	Web           string                 `json:"Web,omitempty"`
}

// DecodeContact decodes a Contacto row.
func DecodeContact(r airtable.Record) ContactFields {
	return ContactFields{
		NombreTarjeta: r.String("NombreTarjeta"),
		Email:         r.Collaborator("Email"),
		Telefono:      r.String("Telefono"),
		Whatsapp:      r.String("Whatsapp"),
		Web:           r.String("Web"),
	}
}

// SocialFields is a row of Redes. Airtable omits unchecked checkboxes, so a
// false Activo is never sent.
type SocialFields struct {
	Name   string `json:"Name,omitempty"`
	Link   string `json:"Link,omitempty"`
	Activo bool   `json:"Activo,omitempty"`
}

// DecodeSocial decodes a Redes row.
func DecodeSocial(r airtable.Record) SocialFields {
	return SocialFields{
		Name:   r.String("Name"),
		Link:   r.String("Link"),
		Activo: r.Bool("Activo"),
	}
}

// GalleryFields is a row of Galeria.
type GalleryFields struct {
	Nombre  string                `json:"Nombre,omitempty"`
	Galeria []airtable.Attachment `json:"Galeria,omitempty"`
}

// DecodeGallery decodes a Galeria row.
func DecodeGallery(r airtable.Record) GalleryFields {
	return GalleryFields{
		Nombre:  r.String("Nombre"),
		Galeria: r.Attachments("Galeria"),
	}
}

// VideoFields is a row of Videos.
type VideoFields struct {
	Nombre      string `json:"Nombre,omitempty"`
	Descripcion string `json:"Descripción,omitempty"`
	Link        string `json:"Link,omitempty"`
}

// DecodeVideo decodes a Videos row.
func DecodeVideo(r airtable.Record) VideoFields {
	return VideoFields{
		Nombre:      r.String("Nombre"),
		Descripcion: r.String("Descripción"),
		Link:        r.String("Link"),
	}
}

// ExperienceFields is a row of Experiencia. Dates are ISO strings.
type ExperienceFields struct {
	NombrePuesto      string `json:"NombrePuesto,omitempty"`
	DescripcionPuesto string `json:"DescripcionPuesto,omitempty"`
	FechaInicio       string `json:"FechaInicio,omitempty"`
	FechaFinal        string `json:"FechaFinal,omitempty"`
}

// DecodeExperience decodes an Experiencia row.
func DecodeExperience(r airtable.Record) ExperienceFields {
	return ExperienceFields{
		NombrePuesto:      r.String("NombrePuesto"),
		DescripcionPuesto: r.String("DescripcionPuesto"),
		FechaInicio:       r.String("FechaInicio"),
		FechaFinal:        r.String("FechaFinal"),
	}
}

// SobreMiFields is a row of SobreMi.
type SobreMiFields struct {
	Nombre      string `json:"Nombre,omitempty"`
	Descripcion string `json:"Descripcion,omitempty"`
}

// DecodeSobreMi decodes a SobreMi row.
func DecodeSobreMi(r airtable.Record) SobreMiFields {
	return SobreMiFields{
		Nombre:      r.String("Nombre"),
		Descripcion: r.String("Descripcion"),
	}
}

// UbicacionFields is a row of Ubicacion.
type UbicacionFields struct {
	Nombre       string `json:"Nombre,omitempty"`
	URLNavegador string `json:"Url Navegador,omitempty"`
}

// DecodeUbicacion decodes a Ubicacion row.
func DecodeUbicacion(r airtable.Record) UbicacionFields {
	return UbicacionFields{
		Nombre:       r.String("Nombre"),
		URLNavegador: r.String("Url Navegador"),
	}
}

// PosicionTarjetaFields is a row of PosicionTarjeta. Nombre is a card
// component name such as "AboutCard.tsx".
type PosicionTarjetaFields struct {
	Nombre   string  `json:"Nombre,omitempty"`
	Activado bool    `json:"Activado,omitempty"`
	Posicion float64 `json:"Posicion,omitempty"`
}

// DecodePosicionTarjeta decodes a PosicionTarjeta row.
func DecodePosicionTarjeta(r airtable.Record) PosicionTarjetaFields {
	pos, _ := r.Number("Posicion")
	return PosicionTarjetaFields{
		Nombre:   r.String("Nombre"),
		Activado: r.Bool("Activado"),
		Posicion: pos,
	}
}

// ColaborarFields is a row of Colaborar.
type ColaborarFields struct {
	Titulo  string `json:"Titulo,omitempty"`
	Texto   string `json:"Texto,omitempty"`
	NomBtnA string `json:"NomBtnA,omitempty"`
	NomBtnB string `json:"NomBtnB,omitempty"`
	URLA    string `json:"URLA,omitempty"`
	URLB    string `json:"URLB,omitempty"`
}

// DecodeColaborar decodes a Colaborar row.
func DecodeColaborar(r airtable.Record) ColaborarFields {
	return ColaborarFields{
		Titulo:  r.String("Titulo"),
		Texto:   r.String("Texto"),
		NomBtnA: r.String("NomBtnA"),
		NomBtnB: r.String("NomBtnB"),
		URLA:    r.String("URLA"),
		URLB:    r.String("URLB"),
	}
}

// PersonalizacionFields is a row of Personalizacion.
type PersonalizacionFields struct {
	Name   string                `json:"Name,omitempty"`
	Imagen []airtable.Attachment `json:"Imagen,omitempty"`
	Color  string                `json:"Color,omitempty"`
	Color2 string                `json:"Color2,omitempty"`
}

// DecodePersonalizacion decodes a Personalizacion row.
func DecodePersonalizacion(r airtable.Record) PersonalizacionFields {
	return PersonalizacionFields{
		Name:   r.String("Name"),
		Imagen: r.Attachments("Imagen"),
		Color:  r.String("Color"),
		Color2: r.String("Color2"),
	}
}

// DecodeAll decodes every record with decode, keeping order.
func DecodeAll[F any](recs []airtable.Record, decode func(airtable.Record) F) []F {
	out := make([]F, 0, len(recs))
	for _, r := range recs {
		out = append(out, decode(r))
	}
	return out
}

// First returns the first element, or nil.
func First[F any](rows []F) *F {
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}
