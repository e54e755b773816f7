package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fortyfives/server/store"
)

// ledger is the read side of store.DB the API needs.
type ledger interface {
	Ping(ctx context.Context) error
	RecentGames(ctx context.Context, limit int) ([]store.GameSummary, error)
	GameDetail(ctx context.Context, id string) (store.GameDetail, error)
	Leaderboard(ctx context.Context) ([]store.LeaderRow, error)
}

func Router(db ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	})

	// Most recent games first. ?limit= caps the list (default 50, max 200).
	r.Get("/api/games", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, 200)
		}
		games, err := db.RecentGames(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if games == nil {
			games = []store.GameSummary{}
		}
		writeJSON(w, games)
	})

	r.Get("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		d, err := db.GameDetail(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, d)
	})

	r.Get("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Leaderboard(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []store.LeaderRow{}
		}
		writeJSON(w, rows)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
