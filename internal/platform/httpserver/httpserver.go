package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"modwallet/internal/platform/config"
)

// New builds the wallet HTTP server. Write and idle timeouts leave room for
// the per-request timeout enforced by middleware.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * cfg.RequestTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
