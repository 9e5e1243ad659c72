package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"arbor/internal/build"
	"arbor/internal/content"
	fsutil "arbor/internal/storage/fs"
)

// BuildVersion is set at link time.
var BuildVersion = ""

// Loader produces a fresh Repository for Reload.
type Loader func(ctx context.Context) (*content.Repository, error)

// Server serves a Repository as read-only JSON. The Repository can be
// swapped with Reload while requests are in flight.
type Server struct {
	repo   atomic.Pointer[content.Repository]
	loader Loader
	mux    *http.ServeMux
	logger *slog.Logger
}

func NewServer(repo *content.Repository, loader Loader) *Server {
	s := &Server{
		loader: loader,
		mux:    http.NewServeMux(),
		logger: slog.Default(),
	}
	s.repo.Store(repo)
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) Repository() *content.Repository {
	return s.repo.Load()
}

// Reload replaces the served Repository. On failure the old one stays.
func (s *Server) Reload(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	start := time.Now()
	repo, err := s.loader(ctx)
	if err != nil {
		s.logger.Error("reload failed", "err", err)
		return err
	}
	s.repo.Store(repo)
	s.logger.Info("content reloaded", "items", repo.Len(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/blog-index.json", s.handleBlogIndex)
	s.mux.HandleFunc("/api/backlinks/", s.handleBacklinks)
	s.mux.HandleFunc("/api/tags/", s.handleTag)
	s.mux.HandleFunc("/api/", s.handleContent)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	version := strings.TrimSpace(BuildVersion)
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version,
		"items":   s.Repository().Len(),
	})
}

func (s *Server) handleBlogIndex(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, build.BlogIndex(s.Repository()))
}

// handleContent serves /api/{listing} and /api/{type}/{slug}.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	repo := s.Repository()
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	kind, slug, hasSlug := strings.Cut(rest, "/")

	if !hasSlug {
		switch kind {
		case "blog":
			if tag := strings.TrimSpace(r.URL.Query().Get("tag")); tag != "" {
				writeJSON(w, http.StatusOK, repo.Tagged(content.TypeBlog, tag))
				return
			}
			writeJSON(w, http.StatusOK, repo.Blog())
		case "poems", "poem":
			writeJSON(w, http.StatusOK, repo.Poems())
		case "moments", "moment":
			writeJSON(w, http.StatusOK, repo.Moments())
		case "feed":
			writeJSON(w, http.StatusOK, repo.Feed())
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
		return
	}

	typ, err := content.ParseType(kind)
	if err != nil || !fsutil.ValidSlug(slug) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	item, ok := repo.BySlug(slug, typ)
	if !ok {
		writeError(w, http.StatusNotFound, content.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleBacklinks(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/backlinks/"), "/")
	if !fsutil.ValidSlug(slug) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, s.Repository().Backlinks(slug))
}

// handleTag lists public items of every type carrying the tag, newest first.
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	tag := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tags/"), "/"))
	if tag == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	repo := s.Repository()
	var items []content.ContentItem
	for _, t := range content.Types {
		items = append(items, repo.Tagged(t, tag)...)
	}
	writeJSON(w, http.StatusOK, content.SortByUpdated(items))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Warn("write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
