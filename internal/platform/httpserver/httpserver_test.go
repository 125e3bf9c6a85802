package httpserver

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"modwallet/internal/platform/config"
)

func TestNew(t *testing.T) {
	cfg := config.Server{Addr: ":9090", RequestTimeout: 10 * time.Second}
	srv := New(cfg, http.NotFoundHandler(), slog.New(slog.DiscardHandler))

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.NotNil(t, srv.ErrorLog)
}
