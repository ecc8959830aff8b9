package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/repository"
	"github.com/loveletter-online/server-go/internal/room"
)

// Store is the slice of the repository the HTTP surface reads from.
type Store interface {
	UserStats(ctx context.Context, subjectID string) (*repository.UserStats, error)
	Leaderboard(ctx context.Context, kind string, limit int) ([]repository.LeaderboardEntry, error)
	Ping(ctx context.Context) error
}

// StatsAPI serves the read-only stats endpoints. With a nil store every
// data endpoint answers 503 while gameplay continues unaffected.
type StatsAPI struct {
	store  Store
	rooms  *room.Manager
	logger *zap.Logger
}

// NewStatsAPI builds the HTTP surface. store may be nil when the server
// runs without a database.
func NewStatsAPI(store Store, rooms *room.Manager, logger *zap.Logger) *StatsAPI {
	return &StatsAPI{store: store, rooms: rooms, logger: logger}
}

// Register mounts the endpoints on the mux.
func (a *StatsAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("/stats", a.withCORS(a.handleStats))
	mux.HandleFunc("/leaderboard", a.withCORS(a.handleLeaderboard))
	mux.HandleFunc("/health", a.withCORS(a.handleHealth))
}

// withCORS answers preflight requests and stamps the CORS headers every
// browser client needs on the actual responses.
func (a *StatsAPI) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (a *StatsAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId parameter", http.StatusBadRequest)
		return
	}
	stats, err := a.store.UserStats(r.Context(), userID)
	if errors.Is(err, repository.ErrNoSuchUser) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("stats query failed", zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	a.writeJSON(w, stats)
}

func (a *StatsAPI) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = repository.LeaderboardWins
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.store.Leaderboard(r.Context(), kind, limit)
	if errors.Is(err, repository.ErrUnknownLeaderboard) {
		http.Error(w, "unknown leaderboard type", http.StatusBadRequest)
		return
	}
	if err != nil {
		a.logger.Error("leaderboard query failed", zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []repository.LeaderboardEntry{}
	}
	a.writeJSON(w, entries)
}

func (a *StatsAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "ok",
		"rooms":  a.rooms.Count(),
	}
	if a.store != nil {
		if err := a.store.Ping(r.Context()); err != nil {
			health["database"] = "unreachable"
		} else {
			health["database"] = "ok"
		}
	}
	a.writeJSON(w, health)
}

func (a *StatsAPI) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("writing response", zap.Error(err))
	}
}
