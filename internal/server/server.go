// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/querycache"
	"github.com/staranto/vcardctl/internal/reqcache"
	"github.com/staranto/vcardctl/internal/resource"
	"github.com/staranto/vcardctl/internal/vcf"
)

const (
	DefaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
	readTimeout     = 15 * time.Second
)

// Server serves the cards as JSON.
type Server struct {
	svc      *card.Service
	mux      *chi.Mux
	enhanced bool
}

type Option func(*Server)

// WithEnhancedVCard adds the wallet lines to the served vCard.
func WithEnhancedVCard() Option {
	return func(s *Server) { s.enhanced = true }
}

// New builds the router over svc.
func New(svc *card.Service, opts ...Option) *Server {
	s := &Server{svc: svc, mux: chi.NewMux()}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.Use(middleware.Recoverer)
	s.mux.Use(requestLogger)

	s.mux.Get("/healthz", s.health)
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/layout", s.layout)
		r.Get("/cards/{card}", s.card)
		r.Get("/vcard", s.vcard)
		r.Get("/cache", s.cacheStats)
		r.Post("/cache/{resource}/invalidate", s.invalidate)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]card.Name{"cards": s.svc.Layout(r.Context())})
}

func (s *Server) card(w http.ResponseWriter, r *http.Request) {
	n, err := card.ParseName(chi.URLParam(r, "card"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	st, err := s.svc.Card(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if st.Data == nil && card.IsPersistent(st.Err) {
		writeError(w, http.StatusBadGateway, st.Err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) vcard(w http.ResponseWriter, r *http.Request) {
	d, err := vcf.Load(r.Context(), s.svc)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, vcf.ErrMissingName) {
			code = http.StatusNotFound
		}
		writeError(w, code, err)
		return
	}

	var opts []vcf.Option
	if s.enhanced {
		opts = append(opts, vcf.WithEnhanced())
	}
	w.Header().Set("Content-Type", vcf.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", vcf.FileName(d)+".vcf"))
	if err := vcf.Write(w, d, opts...); err != nil {
		log.WithError(err).Warn("failed to write vcard")
	}
}

type cacheView struct {
	Stats   reqcache.Stats     `json:"stats"`
	Entries []querycache.Entry `json:"entries"`
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	qc := s.svc.Cache()
	writeJSON(w, http.StatusOK, cacheView{Stats: qc.Requests().Stats(), Entries: qc.Entries()})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	res, err := resource.Parse(chi.URLParam(r, "resource"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.svc.Cache().InvalidateResource(res)
	log.Debugf("invalidated %s", res)
	writeJSON(w, http.StatusOK, map[string]resource.Key{"invalidated": res})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// requestLogger logs every request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
