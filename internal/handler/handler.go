// Package handler serves the addon protocol over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/catalog"
	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/metrics"
	"github.com/kartal788/dftest/internal/stream"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/logger"
)

const requestTimeout = 30 * time.Second

// CatalogQuerier answers catalog pages.
type CatalogQuerier interface {
	Query(ctx context.Context, req catalog.Request) []*media.MediaItem
}

// StreamLister resolves the streams of a public id.
type StreamLister interface {
	ForID(ctx context.Context, mediaType media.MediaType, id string) []stream.PlayableStream
}

// HealthChecker reports whether every shard answers.
type HealthChecker interface {
	Shards() []media.ShardStore
}

// Handler wires the addon routes.
type Handler struct {
	addon   config.AddonConfig
	query   CatalogQuerier
	items   stream.ItemGetter
	streams StreamLister
	health  HealthChecker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates the addon handler.
func New(
	addon config.AddonConfig,
	query CatalogQuerier,
	items stream.ItemGetter,
	streams StreamLister,
	health HealthChecker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	if addon.PageSize <= 0 {
		addon.PageSize = catalog.DefaultPageSize
	}
	return &Handler{
		addon:   addon,
		query:   query,
		items:   items,
		streams: streams,
		health:  health,
		metrics: m,
		logger:  logger.Named("handler"),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(h.observe)

	r.Get("/manifest.json", h.handleManifest)
	r.Get("/catalog/{type}/*", h.handleCatalog)
	r.Get("/meta/{type}/*", h.handleMeta)
	r.Get("/stream/{type}/*", h.handleStream)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	return r
}

func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, status, time.Since(start))
	})
}

func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildManifest(h.addon))
}

type catalogResponse struct {
	Metas []Meta `json:"metas"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	empty := catalogResponse{Metas: []Meta{}}

	mediaType, err := media.ParseMediaType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	id, extra := splitCatalogPath(chi.URLParam(r, "*"))
	req := catalog.Request{
		MediaType: mediaType,
		PageSize:  h.addon.PageSize,
		Sort:      media.SortUpdated,
	}
	if id != CatalogLatestMovies && id != CatalogLatestSeries {
		platform, ok := catalogPlatform(id)
		if !ok {
			writeJSON(w, http.StatusOK, empty)
			return
		}
		req.Platform = platform
	}

	params := ParseExtra(extra)
	req.Genre = params["genre"]
	if v, ok := params["skip"]; ok {
		if skip, err := strconv.Atoi(v); err == nil && skip > 0 {
			req.Skip = skip
		}
	}
	if v, ok := params["sort"]; ok {
		req.Sort = media.ParseSortKey(v)
	}

	items := h.query.Query(r.Context(), req)
	resp := catalogResponse{Metas: make([]Meta, 0, len(items))}
	for _, item := range items {
		resp.Metas = append(resp.Metas, toMeta(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

type metaResponse struct {
	Meta interface{} `json:"meta"`
}

func (h *Handler) handleMeta(w http.ResponseWriter, r *http.Request) {
	empty := metaResponse{Meta: struct{}{}}

	mediaType, err := media.ParseMediaType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}
	ident, err := media.ParseID(trimJSON(chi.URLParam(r, "*")))
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	item, err := h.items.Get(r.Context(), ident.TMDBID, ident.ShardIndex, mediaType)
	if err != nil {
		logger.FromContext(r.Context()).Debug("meta lookup failed", zap.String("id", ident.String()), zap.Error(err))
		writeJSON(w, http.StatusOK, empty)
		return
	}

	meta := toMeta(item)
	if mediaType == media.MediaTypeSeries {
		meta.Videos = toVideos(item)
	}
	writeJSON(w, http.StatusOK, metaResponse{Meta: meta})
}

type streamResponse struct {
	Streams []stream.PlayableStream `json:"streams"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	mediaType, err := media.ParseMediaType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusOK, streamResponse{Streams: []stream.PlayableStream{}})
		return
	}
	streams := h.streams.ForID(r.Context(), mediaType, trimJSON(chi.URLParam(r, "*")))
	writeJSON(w, http.StatusOK, streamResponse{Streams: streams})
}

type healthResponse struct {
	Status string            `json:"status"`
	Shards map[string]string `json:"shards"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Shards: map[string]string{}}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, sh := range h.health.Shards() {
		key := strconv.Itoa(sh.Index())
		if err := sh.Ping(ctx); err != nil {
			resp.Shards[key] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Shards[key] = "ok"
	}
	writeJSON(w, status, resp)
}

// splitCatalogPath splits "{id}.json" or "{id}/{extra}.json".
func splitCatalogPath(rest string) (id, extra string) {
	rest = trimJSON(rest)
	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}

func trimJSON(s string) string {
	return strings.TrimSuffix(s, ".json")
}

// ParseExtra decodes "k=v" pairs separated by "/" or "&".
func ParseExtra(extra string) map[string]string {
	out := make(map[string]string)
	if extra == "" {
		return out
	}
	for _, pair := range strings.FieldsFunc(extra, func(r rune) bool { return r == '/' || r == '&' }) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
