// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package card

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/mapper"
	"github.com/staranto/vcardctl/internal/querycache"
	"github.com/staranto/vcardctl/internal/resource"
)

// store is an in-memory airtable.Store.
type store struct {
	mu      sync.Mutex
	rows    map[resource.Key][]string
	errs    map[resource.Key]error
	lists   map[resource.Key]int
	opts    map[resource.Key]airtable.ListOptions
	deletes map[string]bool
	sent    []any
}

func newStore() *store {
	return &store{
		rows:    map[resource.Key][]string{},
		errs:    map[resource.Key]error{},
		lists:   map[resource.Key]int{},
		opts:    map[resource.Key]airtable.ListOptions{},
		deletes: map[string]bool{},
	}
}

func (s *store) List(_ context.Context, res resource.Key, opts airtable.ListOptions) ([]airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[res]++
	s.opts[res] = opts
	if err := s.errs[res]; err != nil {
		return nil, err
	}
	var out []airtable.Record
	for i, f := range s.rows[res] {
		out = append(out, airtable.Record{ID: string(res) + string(rune('0'+i)), Fields: json.RawMessage(f)})
	}
	return out, nil
}

func (s *store) Find(ctx context.Context, res resource.Key, _ string) ([]airtable.Record, error) {
	return s.List(ctx, res, airtable.ListOptions{})
}

func (s *store) Get(ctx context.Context, res resource.Key, id string) *airtable.Record {
	recs, _ := s.List(ctx, res, airtable.ListOptions{})
	for _, r := range recs {
		if r.ID == id {
			return &r
		}
	}
	return nil
}

func (s *store) Create(_ context.Context, res resource.Key, fields any) (*airtable.Record, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, fields)
	if err := s.errs[res]; err != nil {
		return nil, err
	}
	s.rows[res] = append(s.rows[res], string(b))
	return &airtable.Record{ID: "recNew", Fields: b}, nil
}

func (s *store) Update(_ context.Context, res resource.Key, id string, fields any) (*airtable.Record, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, fields)
	if err := s.errs[res]; err != nil {
		return nil, err
	}
	s.rows[res] = []string{string(b)}
	return &airtable.Record{ID: id, Fields: b}, nil
}

func (s *store) Delete(_ context.Context, res resource.Key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deletes[id] {
		return false
	}
	s.rows[res] = nil
	return true
}

func (s *store) count(res resource.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists[res]
}

func newService(st *store) *Service {
	return NewService(querycache.New(st, nil), st)
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
	}{
		{"gallery", Gallery},
		{"GalleryCard.tsx", Gallery},
		{"VideoCard.tsx", Videos},
		{"CTACard.tsx", CTA},
		{" AboutCard ", About},
		{"ubicacion", Location},
		{"ProfileCard.tsx", Profile},
		{"personalizacion", Theme},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseName("WidgetCard.tsx")
	assert.Error(t, err)
	_, err = ParseName("card")
	assert.Error(t, err)
}

func TestNameResource(t *testing.T) {
	for _, n := range Names() {
		_, ok := resource.Lookup(n.Resource())
		assert.True(t, ok, n)
	}
}

func TestUseSocial_CachedWithinTTL(t *testing.T) {
	st := newStore()
	st.rows[resource.Social] = []string{
		`{"Name":"LinkedIn","Link":"https://li.com/x","Activo":true}`,
		`{"Name":"Old","Link":"","Activo":false}`,
		`{"Name":"X","Link":"","Activo":true}`,
	}
	svc := newService(st)
	ctx := context.Background()

	a := svc.UseSocial(ctx)
	b := svc.UseSocial(ctx)

	require.NoError(t, a.Err)
	assert.False(t, a.IsLoading)
	assert.Equal(t, []mapper.SocialLink{
		{Name: "LinkedIn", URL: "https://li.com/x", HasLink: true},
		{Name: "X", HasLink: false},
	}, a.Data)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, 1, st.count(resource.Social))
}

func TestListOptionsFor(t *testing.T) {
	st := newStore()
	svc := newService(st)
	ctx := context.Background()

	svc.UseExperience(ctx)
	svc.UseCardOrder(ctx)
	svc.UseGallery(ctx)

	assert.Equal(t, airtable.SortedBy("FechaInicio", "desc"), st.opts[resource.Experience])
	assert.Equal(t, airtable.SortedBy("Posicion", "asc"), st.opts[resource.PosicionTarjeta])
	assert.Equal(t, airtable.ListOptions{}, st.opts[resource.Gallery])
}

func TestLayout(t *testing.T) {
	st := newStore()
	st.rows[resource.PosicionTarjeta] = []string{
		`{"Nombre":"ProfileCard.tsx","Activado":true,"Posicion":1}`,
		`{"Nombre":"GalleryCard.tsx","Activado":true,"Posicion":2}`,
		`{"Nombre":"VideoCard.tsx","Activado":false,"Posicion":3}`,
		`{"Nombre":"WidgetCard.tsx","Activado":true,"Posicion":4}`,
		`{"Nombre":"galleryCard.tsx","Activado":true,"Posicion":5}`,
		`{"Nombre":"CTACard.tsx","Activado":true,"Posicion":6}`,
	}
	svc := newService(st)
	assert.Equal(t, []Name{Profile, Gallery, CTA}, svc.Layout(context.Background()))
}

func TestLayout_DefaultWhenEmptyOrFailing(t *testing.T) {
	st := newStore()
	svc := newService(st)
	want := append([]Name{Profile}, DefaultOrder...)
	assert.Equal(t, want, svc.Layout(context.Background()))

	st = newStore()
	st.errs[resource.PosicionTarjeta] = &airtable.TransportError{Op: "list", StatusCode: 500}
	svc = newService(st)
	assert.Equal(t, want, svc.Layout(context.Background()))
}

func TestUseAbout_FallsBackToConfig(t *testing.T) {
	st := newStore()
	st.rows[resource.Config] = []string{`{"Nombre":"Ana","SobreMi":"Hola\nMundo","GoogleMaps":"https://maps.google.com/?q=Madrid"}`}
	svc := newService(st)
	ctx := context.Background()

	about := svc.UseAbout(ctx)
	assert.Equal(t, mapper.DefaultAboutTitle, about.Data.Title)
	assert.Equal(t, []string{"Hola", "Mundo"}, about.Data.Paragraphs)

	loc := svc.UseLocation(ctx)
	assert.Equal(t, "https://maps.google.com/?q=Madrid", loc.Data.URL)
	assert.Equal(t, "https://maps.google.com/maps?q=Madrid&t=&z=12&ie=UTF8&iwloc=&output=embed", loc.Data.EmbedURL)

	assert.Equal(t, 1, st.count(resource.Config))
}

func TestCard_EmptyCardsHaveNoData(t *testing.T) {
	st := newStore()
	svc := newService(st)
	ctx := context.Background()

	for _, n := range Names() {
		t.Run(string(n), func(t *testing.T) {
			c, err := svc.Card(ctx, n)
			require.NoError(t, err)
			assert.Nil(t, c.Data)
			assert.NoError(t, c.Err)
		})
	}

	_, err := svc.Card(ctx, "nope")
	assert.Error(t, err)
}

func TestCard_WithData(t *testing.T) {
	st := newStore()
	st.rows[resource.Config] = []string{`{"Nombre":"Ana","Puesto/Texto":"CTO"}`}
	st.rows[resource.Colaborar] = []string{`{"Titulo":"Hablemos","NomBtnA":"Agenda","URLA":"https://cal"}`}
	svc := newService(st)

	c, err := svc.Card(context.Background(), Profile)
	require.NoError(t, err)
	p, ok := c.Data.(*mapper.Profile)
	require.True(t, ok)
	assert.Equal(t, "CTO", p.Title)

	c, err = svc.Card(context.Background(), CTA)
	require.NoError(t, err)
	cta, ok := c.Data.(*mapper.CTA)
	require.True(t, ok)
	assert.Equal(t, "Agenda", cta.Primary.Label)
}

func TestCard_ErrorSurfacesAsState(t *testing.T) {
	st := newStore()
	st.errs[resource.Gallery] = &airtable.TransportError{Op: "list", StatusCode: 403}
	svc := newService(st)

	c, err := svc.Card(context.Background(), Gallery)
	require.NoError(t, err)
	assert.Nil(t, c.Data)
	assert.Error(t, c.Err)
	assert.True(t, IsPersistent(c.Err))
}

func TestWritesInvalidate(t *testing.T) {
	st := newStore()
	st.rows[resource.Social] = []string{`{"Name":"A","Activo":true}`}
	svc := newService(st)
	ctx := context.Background()

	require.Len(t, svc.UseSocial(ctx).Data, 1)

	_, err := svc.Create(ctx, resource.Social, mapper.SocialFields{Name: "B", Activo: true})
	require.NoError(t, err)
	_, err = svc.Cache().Fetch(ctx, resource.Social, ListOptionsFor(resource.Social))
	require.NoError(t, err)
	assert.Equal(t, 2, st.count(resource.Social))
	assert.Len(t, svc.UseSocial(ctx).Data, 2)

	_, err = svc.Update(ctx, resource.Social, "social0", map[string]any{"Name": "C", "Activo": true})
	require.NoError(t, err)
	_, err = svc.Cache().Fetch(ctx, resource.Social, ListOptionsFor(resource.Social))
	require.NoError(t, err)
	assert.Equal(t, 3, st.count(resource.Social))

	ok, err := svc.Delete(ctx, resource.Social, "missing")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrDeleteFailed)

	// A failed write does not invalidate.
	_, _ = svc.Cache().Fetch(ctx, resource.Social, ListOptionsFor(resource.Social))
	assert.Equal(t, 3, st.count(resource.Social))

	st.deletes["social0"] = true
	ok, err = svc.Delete(ctx, resource.Social, "social0")
	require.NoError(t, err)
	assert.True(t, ok)
	_, _ = svc.Cache().Fetch(ctx, resource.Social, ListOptionsFor(resource.Social))
	assert.Equal(t, 4, st.count(resource.Social))
}

func TestWrites_ReadOnly(t *testing.T) {
	svc := NewService(querycache.New(newStore(), nil), nil)
	_, err := svc.Create(context.Background(), resource.Social, nil)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = svc.CreateFields(context.Background(), resource.Social, map[string]any{"Name": "A"})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestWriteFields(t *testing.T) {
	tests := []struct {
		name   string
		res    resource.Key
		id     string
		fields map[string]any
		want   any
	}{
		{
			name:   "known fields go through the row type",
			res:    resource.Social,
			fields: map[string]any{"Name": "Bluesky", "Activo": true},
			want:   mapper.SocialFields{Name: "Bluesky", Activo: true},
		},
		{
			name:   "update through the row type",
			res:    resource.PosicionTarjeta,
			id:     "rec1",
			fields: map[string]any{"Nombre": "AboutCard.tsx", "Posicion": float64(2)},
			want:   mapper.PosicionTarjetaFields{Nombre: "AboutCard.tsx", Posicion: 2},
		},
		{
			name:   "unknown field",
			res:    resource.Social,
			fields: map[string]any{"Name": "Bluesky", "Orden": float64(3)},
			want:   map[string]any{"Name": "Bluesky", "Orden": float64(3)},
		},
		{
			name:   "false is not dropped",
			res:    resource.Social,
			id:     "rec1",
			fields: map[string]any{"Activo": false},
			want:   map[string]any{"Activo": false},
		},
		{
			name:   "cleared field",
			res:    resource.Contact,
			id:     "rec1",
			fields: map[string]any{"Web": nil},
			want:   map[string]any{"Web": nil},
		},
		{
			name:   "mismatched type",
			res:    resource.Contact,
			fields: map[string]any{"Telefono": float64(600123123)},
			want:   map[string]any{"Telefono": float64(600123123)},
		},
		{
			name:   "field name case differs",
			res:    resource.Social,
			fields: map[string]any{"name": "Bluesky"},
			want:   map[string]any{"name": "Bluesky"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore()
			svc := newService(st)
			ctx := context.Background()

			var err error
			if tt.id == "" {
				_, err = svc.CreateFields(ctx, tt.res, tt.fields)
			} else {
				_, err = svc.UpdateFields(ctx, tt.res, tt.id, tt.fields)
			}
			require.NoError(t, err)
			require.Len(t, st.sent, 1)
			assert.Equal(t, tt.want, st.sent[0])
		})
	}
}

func TestWriteFields_Invalidates(t *testing.T) {
	st := newStore()
	st.rows[resource.Social] = []string{`{"Name":"A","Activo":true}`}
	svc := newService(st)
	ctx := context.Background()

	require.Len(t, svc.UseSocial(ctx).Data, 1)

	rec, err := svc.CreateFields(ctx, resource.Social, map[string]any{"Name": "B", "Activo": true})
	require.NoError(t, err)
	assert.Equal(t, "recNew", rec.ID)
	assert.JSONEq(t, `{"Name":"B","Activo":true}`, string(rec.Fields))

	_, err = svc.Cache().Fetch(ctx, resource.Social, ListOptionsFor(resource.Social))
	require.NoError(t, err)
	assert.Equal(t, 2, st.count(resource.Social))
}

func TestPrefetch(t *testing.T) {
	st := newStore()
	svc := newService(st)
	require.NoError(t, svc.Prefetch(context.Background()))
	for _, res := range resource.Keys() {
		assert.Equal(t, 1, st.count(res), res)
	}

	st = newStore()
	st.errs[resource.Videos] = errors.New("down")
	svc = newService(st)
	err := svc.Prefetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefetch videos")
	assert.Equal(t, 1, st.count(resource.Gallery))
}

func TestIsPersistent(t *testing.T) {
	assert.False(t, IsPersistent(nil))
	assert.True(t, IsPersistent(airtable.ErrMissingToken))
	assert.True(t, IsPersistent(&airtable.TransportError{StatusCode: 401}))
	assert.False(t, IsPersistent(&airtable.TransportError{StatusCode: 503}))
	assert.False(t, IsPersistent(&airtable.TransportError{Err: errors.New("dial")}))
	assert.False(t, IsPersistent(errors.New("other")))
}
