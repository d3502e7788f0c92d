package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"fidscope/internal/inspect"
	"fidscope/internal/metrics"
	"fidscope/internal/neynar"
	"fidscope/internal/openrank"
	"fidscope/internal/quotient"
	"fidscope/internal/store/scanstore"
)

// Server exposes the inspector over HTTP. The handlers are thin: parse,
// call the service, reshape JSON.
type Server struct {
	router   *mux.Router
	http     *http.Server
	svc      *inspect.Service
	graph    *openrank.Client
	quotient *quotient.Client
	db       *scanstore.DB
}

// New builds the server. graph, quotient and db may be nil; their routes
// then answer 503 / skip persistence.
func New(addr string, svc *inspect.Service, graph *openrank.Client, quot *quotient.Client, db *scanstore.DB) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		svc:      svc,
		graph:    graph,
		quotient: quot,
		db:       db,
	}
	s.routes()
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.withRequestLog(s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/inspect", s.handleInspect).Methods(http.MethodGet)
	s.router.HandleFunc("/api/following", s.handleFollowing).Methods(http.MethodGet)
	s.router.HandleFunc("/api/openrank", s.handleOpenRank).Methods(http.MethodGet)
	s.router.HandleFunc("/api/quotient", s.handleQuotient).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error { return s.http.ListenAndServe() }

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("fids")
	if raw == "" {
		raw = q.Get("fid")
	}
	fids, err := inspect.ParseFIDList(raw)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	batch, _ := strconv.ParseBool(q.Get("batch"))

	report, err := s.svc.InspectFIDs(r.Context(), fids, inspect.Options{Batch: batch})
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}
	if s.db != nil {
		if _, err := s.db.RecordScan(r.Context(), time.Now().UTC(), raw, report); err != nil {
			log.Warn().Err(err).Msg("scan history write failed")
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fid, err := strconv.ParseInt(q.Get("fid"), 10, 64)
	if err != nil || fid <= 0 {
		writeErr(w, http.StatusBadRequest, "fid is required")
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	report, err := s.svc.InspectFollowing(r.Context(), fid, q.Get("cursor"), limit)
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleOpenRank(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeErr(w, http.StatusServiceUnavailable, "openrank not configured")
		return
	}
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	var (
		scores []openrank.Score
		err    error
	)
	switch action := q.Get("action"); action {
	case "", "score":
		var fids []int64
		fids, err = inspect.ParseFIDList(q.Get("fids"))
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		scores, err = s.graph.GetScores(r.Context(), fids)
	case "rankings":
		scores, err = s.graph.GlobalRankings(r.Context(), limit)
	case "followers", "following":
		fid, perr := strconv.ParseInt(q.Get("fid"), 10, 64)
		if perr != nil || fid <= 0 {
			writeErr(w, http.StatusBadRequest, "fid is required")
			return
		}
		if action == "followers" {
			scores, err = s.graph.FollowerRankings(r.Context(), fid, limit)
		} else {
			scores, err = s.graph.FollowingRankings(r.Context(), fid, limit)
		}
	default:
		writeErr(w, http.StatusBadRequest, "unknown action "+action)
		return
	}
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}

	type entry struct {
		openrank.Score
		DisplayScore string `json:"display_score"`
		Tier         string `json:"tier"`
	}
	out := make([]entry, 0, len(scores))
	for _, sc := range scores {
		out = append(out, entry{
			Score:        sc,
			DisplayScore: strconv.FormatFloat(sc.Score*1000, 'f', 2, 64),
			Tier:         openrank.Tier(sc.Score),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

func (s *Server) handleQuotient(w http.ResponseWriter, r *http.Request) {
	if s.quotient == nil || !s.quotient.Configured() {
		writeErr(w, http.StatusServiceUnavailable, "quotient not configured")
		return
	}
	fids, err := inspect.ParseFIDList(r.URL.Query().Get("fids"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	reps, err := s.quotient.GetUserReputations(r.Context(), fids)
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": reps, "count": len(reps)})
}

// writeUpstreamErr distinguishes a plan-tier rejection from transient
// upstream failure so clients can offer a manual-input workflow instead of
// treating it as an outage.
func writeUpstreamErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, neynar.ErrPlanRestricted):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":       "social graph access requires a paid plan",
			"manual_mode": true,
		})
	case errors.Is(err, neynar.ErrUnauthorized):
		writeErr(w, http.StatusBadGateway, "social graph credentials rejected")
	default:
		writeErr(w, http.StatusBadGateway, err.Error())
	}
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
