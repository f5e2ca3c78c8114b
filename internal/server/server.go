// Package server exposes a memo cache and an upstream fetcher over HTTP
// for inspection and manual testing.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bjaus/memo"
	"github.com/bjaus/memo/fetch"
	"github.com/bjaus/memo/internal/logger"
)

const maxValueBytes = 1 << 20

// Options wires the server's collaborators. Cache is required; the rest
// are optional.
type Options struct {
	// Cache backs the /cache endpoints.
	Cache *memo.Cache[json.RawMessage]

	// Fetcher and UpstreamURL back the /fetch endpoints.
	Fetcher     *fetch.Fetcher[[]byte]
	UpstreamURL string
	FetchTTL    time.Duration
	Client      *http.Client

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Logger *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	opts Options
	log  *zap.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FetchTTL <= 0 {
		opts.FetchTTL = memo.DefaultTTL
	}
	opts.UpstreamURL = strings.TrimRight(opts.UpstreamURL, "/")

	return &Server{opts: opts, log: opts.Logger}
}

// Handler returns the router with all routes and middlewares mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID, withLogging(s.log))

	r.Get("/healthz", s.healthz)
	r.Get("/stats", s.stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	s.Register(r)

	return r
}

// Register mounts the cache and fetch routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/cache", func(r chi.Router) {
		r.Get("/", s.cacheStats)
		r.Delete("/", s.cacheClear)
		r.Get("/{key}", s.cacheGet)
		r.Put("/{key}", s.cacheSet)
		r.Delete("/{key}", s.cacheDelete)
	})

	r.Route("/fetch", func(r chi.Router) {
		r.Get("/*", s.fetchGet)
		r.Delete("/*", s.fetchInvalidate)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]memo.Stats{"cache": s.opts.Cache.Stats()}
	if s.opts.Fetcher != nil {
		out["fetch"] = s.opts.Fetcher.Cache().Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Cache.Stats())
}

func (s *Server) cacheClear(w http.ResponseWriter, r *http.Request) {
	n := s.opts.Cache.Len()
	s.opts.Cache.Clear()
	logger.From(r.Context()).Info("cache cleared", logger.Count(n))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	v, ok := s.opts.Cache.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v)
}

func (s *Server) cacheSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	rawTTL := r.URL.Query().Get("ttl")
	var ttl time.Duration
	if rawTTL != "" {
		d, err := time.ParseDuration(rawTTL)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ttl: "+err.Error())
			return
		}
		ttl = d
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxValueBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "value too large")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}

	fields := []zap.Field{logger.Key(key)}
	if rawTTL == "" {
		s.opts.Cache.Set(key, json.RawMessage(body))
	} else {
		s.opts.Cache.SetWithTTL(key, json.RawMessage(body), ttl)
		fields = append(fields, logger.TTL(ttl))
	}

	logger.From(r.Context()).Debug("cache set", fields...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheDelete(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Delete(chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

// upstream resolves the wildcard path of a /fetch request to an upstream URL.
func (s *Server) upstream(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.opts.Fetcher == nil || s.opts.UpstreamURL == "" {
		writeError(w, http.StatusServiceUnavailable, "no upstream configured")
		return "", false
	}

	url := s.opts.UpstreamURL + "/" + chi.URLParam(r, "*")
	if q := r.URL.RawQuery; q != "" {
		url += "?" + q
	}
	return url, true
}

func (s *Server) fetchGet(w http.ResponseWriter, r *http.Request) {
	url, ok := s.upstream(w, r)
	if !ok {
		return
	}

	body, err := s.opts.Fetcher.Get(r.Context(), fetch.HTTPKey(url), s.opts.FetchTTL, fetch.HTTPLoader(s.opts.Client, url))
	if err != nil {
		logger.From(r.Context()).Warn("upstream fetch failed", logger.Key(url), logger.Err(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) fetchInvalidate(w http.ResponseWriter, r *http.Request) {
	url, ok := s.upstream(w, r)
	if !ok {
		return
	}

	if err := s.opts.Fetcher.Invalidate(r.Context(), fetch.HTTPKey(url)); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
