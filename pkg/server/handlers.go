package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/dungeontower/pkg/buildinfo"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
	"github.com/matzehuels/dungeontower/pkg/render"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// LayoutResponse is the body of a successful generation.
type LayoutResponse struct {
	ID       string              `json:"id"`
	DescHash string              `json:"desc_hash"`
	Layout   *maplayout.Document `json:"layout"`
	Cache    pipeline.CacheInfo  `json:"cache"`
	Stats    pipeline.Stats      `json:"stats"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	opts, err := s.decodeOptions(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LayoutResponse{
		ID:       res.Record.ID,
		DescHash: res.DescHash,
		Layout:   res.Layout,
		Cache:    res.CacheInfo,
		Stats:    res.Stats,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.runner.Store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeStorage, err, "list layouts"))
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateRecordID(id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.runner.Store.Delete(r.Context(), id); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeStorage, err, "delete layout"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	rec, err := s.record(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := pipeline.Options{Formats: []string{render.FormatSVG}}
	if opts.Scale, err = intParam(r, "scale", 0); err != nil {
		s.writeError(w, err)
		return
	}
	if opts.Labels, err = boolParam(r, "labels"); err != nil {
		s.writeError(w, err)
		return
	}
	if opts.Doors, err = boolParam(r, "doors"); err != nil {
		s.writeError(w, err)
		return
	}

	hash, err := pipeline.LayoutHash(rec.Layout)
	if err != nil {
		s.writeError(w, err)
		return
	}
	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), rec.Layout, hash, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[render.FormatSVG])
}

// decodeOptions reads and validates a generation request. The result is
// always stored.
func (s *Server) decodeOptions(body io.Reader) (pipeline.Options, error) {
	var opts pipeline.Options
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	return s.prepare(opts)
}

func (s *Server) prepare(opts pipeline.Options) (pipeline.Options, error) {
	opts.Store = true
	opts.Logger = s.logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request")
		}
		return opts, err
	}
	return opts, nil
}

func (s *Server) record(r *http.Request) (*store.Record, error) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateRecordID(id); err != nil {
		return nil, err
	}
	rec, err := s.runner.Store.Get(r.Context(), id)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "layout %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load layout")
	}
	return rec, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q", name, v)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q", name, v)
	}
	return b, nil
}
