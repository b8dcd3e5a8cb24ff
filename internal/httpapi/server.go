package httpapi

import (
	"net/http"
	"time"
)

// NewServer creates the ops HTTP server listening on addr.
func NewServer(addr string, store Pinger, board Leaderboard, defaultLimit int) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(store, board, defaultLimit),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
