// Package httpapi serves the operations endpoints: a health check and a
// read-only leaderboard.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"casino-bot/internal/model"
)

const maxLeaderboardLimit = 100

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Leaderboard returns the top accounts by balance.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]*model.Account, error)
}

type entry struct {
	Rank    int   `json:"rank"`
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

// NewRouter builds the chi router. defaultLimit is the leaderboard size used
// when no limit query parameter is given.
func NewRouter(store Pinger, board Leaderboard, defaultLimit int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxLeaderboardLimit {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be within [1,100]"})
				return
			}
			limit = n
		}

		accounts, err := board.Leaderboard(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load leaderboard")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		out := make([]entry, 0, len(accounts))
		for i, a := range accounts {
			out = append(out, entry{Rank: i + 1, UserID: a.UserID, Balance: a.Balance})
		}
		writeJSON(w, http.StatusOK, out)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
