// Package server is a read-only HTTP preview of what generate would
// write: the introspected schema and the rendered Go source per table.
//
// The snapshot is rendered once at start and again on POST /refresh; the
// database is never queried from a GET.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/logger"
	"github.com/koustreak/schemagen/internal/pipeline"
)

// Renderer produces a generation without writing it. *pipeline.Runner
// implements it.
type Renderer interface {
	Render(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Server serves one rendered snapshot.
type Server struct {
	renderer Renderer
	opts     pipeline.Options
	log      *logger.Logger

	// renders serializes Refresh; a Runner is not safe for concurrent use.
	renders sync.Mutex

	mu   sync.RWMutex
	snap *pipeline.Result
	at   time.Time
}

// New returns a Server that renders opts through r.
func New(r Renderer, opts pipeline.Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{renderer: r, opts: opts, log: log}
}

// Refresh renders a new snapshot. On failure the previous snapshot stays.
func (s *Server) Refresh(ctx context.Context) error {
	s.renders.Lock()
	defer s.renders.Unlock()

	res, err := s.renderer.Render(ctx, s.opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snap, s.at = res, time.Now().UTC()
	s.mu.Unlock()

	s.log.With().Str("schema", res.Schema.Name).Int("tables", len(res.Schema.Tables)).Logger().Info("preview refreshed")
	return nil
}

func (s *Server) snapshot() (*pipeline.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.at
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Get("/healthz", s.health)
	r.Get("/schema", s.schema)
	r.Get("/tables", s.tables)
	r.Get("/tables/{name}", s.table)
	r.Post("/refresh", s.refresh)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("preview server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "listen on "+addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap, at := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no snapshot"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"schema":      snap.Schema.Name,
		"rendered_at": at.Format(time.RFC3339),
	})
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.require(w)
	if !ok {
		return
	}
	b, err := yaml.Marshal(snap.Schema)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrKindUnknown, "encode schema", err))
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// tableSummary is one entry of GET /tables.
type tableSummary struct {
	Name       string   `json:"name"`
	Record     string   `json:"record"`
	File       string   `json:"file"`
	Columns    int      `json:"columns"`
	PrimaryKey []string `json:"primary_key,omitempty"`
}

func (s *Server) tables(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.require(w)
	if !ok {
		return
	}
	out := make([]tableSummary, len(snap.Model.Tables))
	for i, t := range snap.Model.Tables {
		out[i] = tableSummary{
			Name:       t.Name,
			Record:     t.Record,
			File:       t.File,
			Columns:    len(t.Fields),
			PrimaryKey: t.PrimaryKey,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.require(w)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	for _, t := range snap.Model.Tables {
		if t.Name != name {
			continue
		}
		for _, a := range snap.Artifacts {
			if a.Path == t.File {
				w.Header().Set("Content-Type", "text/x-go; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				w.Write(a.Content)
				return
			}
		}
	}
	writeError(w, errs.Newf(errs.ErrKindNotFound, "table %q not in schema %q", name, snap.Schema.Name))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		logger.FromContext(r.Context()).With().Err(err).Logger().Warn("preview refresh failed")
		writeError(w, err)
		return
	}
	s.health(w, r)
}

// require writes 503 when nothing has been rendered yet.
func (s *Server) require(w http.ResponseWriter) (*pipeline.Result, bool) {
	snap, _ := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no snapshot rendered yet", Kind: "unavailable"})
		return nil, false
	}
	return snap, true
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, statusOf(kind), errorBody{Error: err.Error(), Kind: kind.String()})
}

func statusOf(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound, errs.ErrKindSchemaNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput, errs.ErrKindUnsupportedType:
		return http.StatusUnprocessableEntity
	case errs.ErrKindConnectionFailed, errs.ErrKindPermissionDenied:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
