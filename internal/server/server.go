// Package server exposes the editing operations over HTTP for the browser
// UI. It is a thin boundary: every handler maps a request onto the core
// types and translates the sentinel errors into status codes.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pagesync/internal/cms"
	"pagesync/internal/schema"
)

// maxUploadBytes bounds media uploads; page repositories hold small
// assets, not video.
const maxUploadBytes = 32 << 20

// Server routes the editor API.
type Server struct {
	router    *mux.Router
	store     cms.Store
	discovery *cms.Discovery
	media     *cms.MediaReplacer
	registry  *schema.Registry
	logger    cms.Logger
	idgen     cms.IDGenerator
	folders   map[string]bool
}

// New creates a Server over the given collaborators. folders is the
// whitelist of media folders uploads may target.
func New(store cms.Store, discovery *cms.Discovery, media *cms.MediaReplacer, registry *schema.Registry, logger cms.Logger, folders []string) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		discovery: discovery,
		media:     media,
		registry:  registry,
		logger:    logger,
		idgen:     cms.UUIDGenerator{},
		folders:   make(map[string]bool, len(folders)),
	}
	for _, f := range folders {
		s.folders[f] = true
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/api/pages", s.handleListPages).Methods(http.MethodGet)
	s.router.HandleFunc("/api/pages/{path:.+}", s.handleGetPage).Methods(http.MethodGet)
	s.router.HandleFunc("/api/pages/{path:.+}", s.handlePutPage).Methods(http.MethodPut)
	s.router.HandleFunc("/api/media/{folder}", s.handleUploadMedia).Methods(http.MethodPost)
	s.router.HandleFunc("/api/media/{folder}/{name}", s.handleDeleteMedia).Methods(http.MethodDelete)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// pageResponse is the wire form of a revisioned page.
type pageResponse struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

// putPageRequest carries an edited page back, with the revision token the
// client last observed. An empty token creates a new page.
type putPageRequest struct {
	Content string `json:"content"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.discovery.Pages(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if pages == nil {
		pages = []cms.Entry{}
	}
	s.writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	rev, err := s.store.Read(r.Context(), path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pageResponse{
		Path:    path,
		Kind:    string(cms.KindForPath(path)),
		Content: string(rev.Content),
		Token:   rev.Token,
	})
}

func (s *Server) handlePutPage(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	var req putPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", cms.ErrInvalidContent, err))
		return
	}

	content := []byte(req.Content)
	if cms.KindForPath(path) == cms.KindJSON {
		if err := s.registry.Validate(content); err != nil {
			s.writeError(w, err)
			return
		}
	}

	message := req.Message
	if message == "" {
		message = "update " + path
	}

	token, err := s.store.Write(r.Context(), path, content, message, req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	folder := mux.Vars(r)["folder"]
	if !s.folders[folder] {
		s.writeError(w, fmt.Errorf("media folder %s: %w", folder, cms.ErrNotFound))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", cms.ErrInvalidContent, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: missing file field: %v", cms.ErrInvalidContent, err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.writeError(w, fmt.Errorf("reading upload: %w", err))
		return
	}

	newPath, err := s.media.Replace(r.Context(), folder, header.Filename, content, r.FormValue("replaces"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"newPath": newPath})
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	folder, name := vars["folder"], vars["name"]
	if !s.folders[folder] {
		s.writeError(w, fmt.Errorf("media folder %s: %w", folder, cms.ErrNotFound))
		return
	}

	if err := s.media.Delete(r.Context(), folder, name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeJSON writes v as the JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "err", err)
	}
}

// writeError maps the sentinel errors onto HTTP statuses. Everything is a
// displayable error string at this boundary; nothing is process-fatal.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cms.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cms.ErrConflict), errors.Is(err, cms.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, cms.ErrAuthFailure):
		status = http.StatusUnauthorized
	case errors.Is(err, cms.ErrBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, cms.ErrInvalidContent):
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// logRequests logs every request with its status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"id", s.idgen.New(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Truncate(time.Millisecond).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
