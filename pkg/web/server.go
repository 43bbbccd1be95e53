package web

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"atm/pkg/log"
)

// Start serves HTTP until the server is shut down.
func Start(server *http.Server) error {
	log.Infow("starting an http server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown waits up to shutdownTimeout for open requests to complete.
func Shutdown(server *http.Server, shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown the http server")
	}
	log.Info("http server stopped")
	return nil
}
