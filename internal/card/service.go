// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/mapper"
	"github.com/staranto/vcardctl/internal/querycache"
	"github.com/staranto/vcardctl/internal/resource"
)

var (
	// ErrDeleteFailed is returned when Airtable did not confirm a delete.
	ErrDeleteFailed = errors.New("record was not deleted")
	// ErrReadOnly is returned when writing through a Service without a store.
	ErrReadOnly = errors.New("service is read-only")
)

// State is what a card consumer gets: the view model plus load status. Err is
// set when the last fetch failed; Data may still hold stale content.
type State[T any] struct {
	Data      T     `json:"data"`
	IsLoading bool  `json:"isLoading"`
	Stale     bool  `json:"stale"`
	Err       error `json:"-"`
}

// Service exposes one accessor per card over a shared query cache.
type Service struct {
	qc *querycache.QueryCache
	w  airtable.Store
}

// NewService returns a Service. w may be nil for read-only use.
func NewService(qc *querycache.QueryCache, w airtable.Store) *Service {
	return &Service{qc: qc, w: w}
}

// Cache returns the underlying query cache.
func (s *Service) Cache() *querycache.QueryCache { return s.qc }

// ListOptionsFor returns the query each resource is read with. Experience is
// newest first and card positions ascend.
func ListOptionsFor(res resource.Key) airtable.ListOptions {
	switch res {
	case resource.Experience:
		return airtable.SortedBy("FechaInicio", airtable.Desc)
	case resource.PosicionTarjeta:
		return airtable.SortedBy("Posicion", airtable.Asc)
	}
	return airtable.ListOptions{}
}

// load reads res through the cache and maps it. A failed read maps no rows,
// so the result is the empty view model.
func load[F, T any](
	ctx context.Context,
	s *Service,
	res resource.Key,
	decode func(airtable.Record) F,
	fn func([]F) T,
) State[T] {
	snap := s.qc.Query(ctx, res, ListOptionsFor(res))
	if snap.Err != nil {
		log.WithError(snap.Err).Warnf("card: %s", res)
	}
	return State[T]{
		Data:      fn(mapper.DecodeAll(snap.Records, decode)),
		IsLoading: snap.Loading,
		Stale:     snap.Stale,
		Err:       snap.Err,
	}
}

func (s *Service) config(ctx context.Context) State[*mapper.ConfigFields] {
	return load(ctx, s, resource.Config, mapper.DecodeConfig, mapper.SelectConfig)
}

func (s *Service) UseProfile(ctx context.Context) State[*mapper.Profile] {
	cfg := s.config(ctx)
	return State[*mapper.Profile]{
		Data:      mapper.MapProfile(cfg.Data),
		IsLoading: cfg.IsLoading,
		Stale:     cfg.Stale,
		Err:       cfg.Err,
	}
}

// UseAbout reads SobreMi and falls back to the about text of the
// configuration when that table has nothing to show.
func (s *Service) UseAbout(ctx context.Context) State[mapper.About] {
	st := load(ctx, s, resource.SobreMi, mapper.DecodeSobreMi, mapper.MapAbout)
	if !st.Data.Empty() {
		return st
	}

	cfg := s.config(ctx)
	if p := mapper.MapConfigAbout(cfg.Data); len(p) > 0 {
		st.Data.Paragraphs = p
		st.Err = errors.Join(st.Err, cfg.Err)
	}
	return st
}

func (s *Service) UseContact(ctx context.Context) State[mapper.Contact] {
	return load(ctx, s, resource.Contact, mapper.DecodeContact, func(rows []mapper.ContactFields) mapper.Contact {
		return mapper.MapContact(mapper.First(rows))
	})
}

func (s *Service) UseSocial(ctx context.Context) State[[]mapper.SocialLink] {
	return load(ctx, s, resource.Social, mapper.DecodeSocial, mapper.MapSocial)
}

func (s *Service) UseGallery(ctx context.Context) State[[]mapper.GalleryImage] {
	return load(ctx, s, resource.Gallery, mapper.DecodeGallery, mapper.MapGallery)
}

func (s *Service) UseVideos(ctx context.Context) State[[]mapper.Video] {
	return load(ctx, s, resource.Videos, mapper.DecodeVideo, mapper.MapVideos)
}

func (s *Service) UseExperience(ctx context.Context) State[[]mapper.Experience] {
	return load(ctx, s, resource.Experience, mapper.DecodeExperience, mapper.MapExperience)
}

// UseLocation reads Ubicacion and falls back to the map link of the
// configuration.
func (s *Service) UseLocation(ctx context.Context) State[mapper.Location] {
	st := load(ctx, s, resource.Ubicacion, mapper.DecodeUbicacion, func(rows []mapper.UbicacionFields) mapper.Location {
		return mapper.MapLocation(mapper.First(rows))
	})
	if !st.Data.Empty() {
		return st
	}

	cfg := s.config(ctx)
	if u := mapper.MapConfigLocation(cfg.Data); u != "" {
		st.Data.URL = u
		st.Data.EmbedURL = mapper.EmbedMapURL(u)
		st.Err = errors.Join(st.Err, cfg.Err)
	}
	return st
}

func (s *Service) UseCardOrder(ctx context.Context) State[[]string] {
	return load(ctx, s, resource.PosicionTarjeta, mapper.DecodePosicionTarjeta, mapper.MapCardOrder)
}

func (s *Service) UseCTA(ctx context.Context) State[*mapper.CTA] {
	return load(ctx, s, resource.Colaborar, mapper.DecodeColaborar, func(rows []mapper.ColaborarFields) *mapper.CTA {
		return mapper.MapCTA(mapper.First(rows))
	})
}

func (s *Service) UseTheme(ctx context.Context) State[*mapper.Theme] {
	return load(ctx, s, resource.Personalizacion, mapper.DecodePersonalizacion, mapper.MapTheme)
}

// Layout returns the render order: profile, then the configured cards. Names
// that match no card are skipped, as are repeats.
func (s *Service) Layout(ctx context.Context) []Name {
	order := s.UseCardOrder(ctx)

	out := []Name{Profile}
	seen := map[Name]bool{Profile: true}
	for _, raw := range order.Data {
		n, err := ParseName(raw)
		if err != nil {
			log.Warnf("card: ignoring position entry %q", raw)
			continue
		}
		if seen[n] || n == Theme {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}

	if len(out) == 1 {
		return append(out, DefaultOrder...)
	}
	return out
}

// Card returns the view model of one card as an untyped State. Data is nil
// when the card has nothing to show.
func (s *Service) Card(ctx context.Context, n Name) (State[any], error) {
	switch n {
	case Profile:
		st := s.UseProfile(ctx)
		return erase(st, st.Data == nil), nil
	case About:
		st := s.UseAbout(ctx)
		return erase(st, st.Data.Empty()), nil
	case Contact:
		st := s.UseContact(ctx)
		return erase(st, st.Data.Empty()), nil
	case Social:
		st := s.UseSocial(ctx)
		return erase(st, len(st.Data) == 0), nil
	case Gallery:
		st := s.UseGallery(ctx)
		return erase(st, len(st.Data) == 0), nil
	case Videos:
		st := s.UseVideos(ctx)
		return erase(st, len(st.Data) == 0), nil
	case Experience:
		st := s.UseExperience(ctx)
		return erase(st, len(st.Data) == 0), nil
	case Location:
		st := s.UseLocation(ctx)
		return erase(st, st.Data.Empty()), nil
	case CTA:
		st := s.UseCTA(ctx)
		return erase(st, st.Data == nil), nil
	case Theme:
		st := s.UseTheme(ctx)
		return erase(st, st.Data == nil), nil
	}
	return State[any]{}, fmt.Errorf("unknown card %q", n)
}

func erase[T any](st State[T], empty bool) State[any] {
	out := State[any]{IsLoading: st.IsLoading, Stale: st.Stale, Err: st.Err}
	if !empty {
		out.Data = st.Data
	}
	return out
}

// Prefetch warms the cache for every resource concurrently. It returns the
// first failure but lets the other fetches finish.
func (s *Service) Prefetch(ctx context.Context) error {
	var g errgroup.Group
	for _, res := range resource.Keys() {
		g.Go(func() error {
			if _, err := s.qc.Fetch(ctx, res, ListOptionsFor(res)); err != nil {
				return fmt.Errorf("prefetch %s: %w", res, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Create adds a record and invalidates the resource before returning.
func (s *Service) Create(ctx context.Context, res resource.Key, fields any) (*airtable.Record, error) {
	if s.w == nil {
		return nil, ErrReadOnly
	}
	rec, err := s.w.Create(ctx, res, fields)
	if err != nil {
		return nil, err
	}
	s.qc.InvalidateResource(res)
	return rec, nil
}

// Update patches a record and invalidates the resource before returning.
func (s *Service) Update(ctx context.Context, res resource.Key, id string, fields any) (*airtable.Record, error) {
	if s.w == nil {
		return nil, ErrReadOnly
	}
	rec, err := s.w.Update(ctx, res, id, fields)
	if err != nil {
		return nil, err
	}
	s.qc.InvalidateResource(res)
	return rec, nil
}

// Delete removes a record. The resource is invalidated only when Airtable
// confirms the delete.
func (s *Service) Delete(ctx context.Context, res resource.Key, id string) (bool, error) {
	if s.w == nil {
		return false, ErrReadOnly
	}
	if !s.w.Delete(ctx, res, id) {
		return false, fmt.Errorf("%w: %s/%s", ErrDeleteFailed, res, id)
	}
	s.qc.InvalidateResource(res)
	return true, nil
}

// IsPersistent reports whether err will not go away by retrying: a 4xx
// response or missing credentials.
func IsPersistent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, airtable.ErrMissingToken) || errors.Is(err, airtable.ErrMissingBase) ||
		errors.Is(err, airtable.ErrUnknownResource) {
		return true
	}
	var te *airtable.TransportError
	if errors.As(err, &te) {
		return !te.Retryable()
	}
	return false
}
