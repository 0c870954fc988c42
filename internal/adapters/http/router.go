package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/cinegraph/internal/config"
	"github.com/kirillkom/cinegraph/internal/core/domain"
	"github.com/kirillkom/cinegraph/internal/core/ports"
	"github.com/kirillkom/cinegraph/internal/observability/metrics"
)

const serviceName = "api"

const maxResultLimit = 100

type Router struct {
	searcher    ports.SmartSearcher
	recommender ports.Recommender
	similar     ports.SimilarityFinder
	ratings     ports.RatingStore
	events      ports.ModelEvents
	metrics     *metrics.HTTPServerMetrics
	cfg         config.Config
}

func NewRouter(
	searcher ports.SmartSearcher,
	recommender ports.Recommender,
	similar ports.SimilarityFinder,
	ratings ports.RatingStore,
	events ports.ModelEvents,
	m *metrics.HTTPServerMetrics,
	cfg config.Config,
) *Router {
	return &Router{
		searcher:    searcher,
		recommender: recommender,
		similar:     similar,
		ratings:     ratings,
		events:      events,
		metrics:     m,
		cfg:         cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search/smart", rt.smartSearch)
	mux.HandleFunc("/v1/recommend/hybrid", rt.recommendHybrid)
	mux.HandleFunc("/v1/recommend/similar", rt.recommendSimilar)
	mux.HandleFunc("/v1/ratings", rt.saveRating)
	mux.HandleFunc("/v1/admin/models/refresh", rt.refreshModels)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) smartSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'query' is required"})
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), rt.cfg.SearchDefaultLimit)

	start := time.Now()
	response, err := rt.searcher.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, response.SearchType, len(response.Results), time.Since(start))
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) recommendHybrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		UserID   int64    `json:"user_id"`
		MovieIDs []int64  `json:"movie_ids"`
		Genres   []string `json:"genres"`
		Query    string   `json:"query"`
		Limit    int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == 0 && len(req.MovieIDs) == 0 && len(req.Genres) == 0 && strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one of user_id, movie_ids, genres or query is required"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = rt.cfg.RecommendDefaultLimit
	}
	if limit > maxResultLimit {
		limit = maxResultLimit
	}

	start := time.Now()
	recommendations := rt.recommender.Recommend(r.Context(), ports.RecommendationRequest{
		UserID:          req.UserID,
		LikedMovieIDs:   req.MovieIDs,
		PreferredGenres: req.Genres,
		TextQuery:       req.Query,
		Limit:           limit,
	})

	if rt.metrics != nil {
		rt.metrics.RecordRecommendation(serviceName, len(recommendations), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recommendations,
		"count":           len(recommendations),
	})
}

func (rt *Router) recommendSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	params := r.URL.Query()
	var movieID int64
	if raw := strings.TrimSpace(params.Get("movie_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "movie_id must be an integer"})
			return
		}
		movieID = parsed
	}
	title := strings.TrimSpace(params.Get("title"))
	limit := parseLimit(params.Get("limit"), rt.cfg.SearchDefaultLimit)

	results, details, err := rt.similar.FindSimilar(r.Context(), ports.SimilarityRequest{
		MovieID: movieID,
		Title:   title,
		Limit:   limit,
		Weights: domain.DefaultSimilarityWeights(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"details": details,
		"count":   len(results),
	})
}

// saveRating records an explicit rating. Ratings feed the liked
// history that seeds hybrid recommendations for returning users.
func (rt *Router) saveRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.ratings == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rating storage is not configured"})
		return
	}

	var req struct {
		UserID  int64   `json:"user_id"`
		MovieID int64   `json:"movie_id"`
		Rating  float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID <= 0 || req.MovieID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and movie_id are required"})
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rating must be between 0 and 5"})
		return
	}

	if err := rt.ratings.SaveRating(r.Context(), req.UserID, req.MovieID, req.Rating); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// refreshModels broadcasts a model refresh so workers rebuild the
// named in-memory artifact. Used after offline training jobs land new
// factors or catalog content.
func (rt *Router) refreshModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "model refresh is not configured"})
		return
	}

	var req struct {
		Artifact string `json:"artifact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	artifact := strings.TrimSpace(req.Artifact)
	if artifact == "" {
		artifact = "all"
	}
	switch artifact {
	case "all", "cbf", "cf":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "artifact must be one of all, cbf, cf"})
		return
	}

	if err := rt.events.PublishModelRefresh(r.Context(), artifact); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "artifact": artifact})
}

func parseLimit(raw string, fallback int) int {
	limit := fallback
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxResultLimit {
		limit = maxResultLimit
	}
	return limit
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	writeJSON(w, status, map[string]string{"error": clientMessage(status, err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
