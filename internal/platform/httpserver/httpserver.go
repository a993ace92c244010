package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. Per-route deadlines come from the
// timeout middleware; these are the outer bounds for slow clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
