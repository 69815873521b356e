package api

import (
	"context"
	"errors"
	"fmt"
	"folio/internal/ports"
	"folio/internal/types"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

func newServer(cfg types.ServerConfig, store ports.ResourceStore, publisher ports.Publisher) *http.Server {
	h := NewHandler(store, publisher, cfg)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunServerInterruptible runs the server in the background in a Go routine and immediately returns a chan to
// the caller. The caller can then send a signal to the chan to gracefully shutdown the server.
// It's up to the caller to wait for in the main Go routine to keep the server running.
func RunServerInterruptible(cfg types.ServerConfig, store ports.ResourceStore, publisher ports.Publisher) (stop chan<- struct{}, done <-chan error) {
	srv := newServer(cfg, store, publisher)

	// one-shot channels for control & completion
	stopCh := make(chan struct{})
	doneCh := make(chan error, 1) // buffered so goroutines can finish without blocking

	go func() {
		log.Printf("folio listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneCh <- err
			return
		}
		doneCh <- nil
	}()

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) // graceful; in-flight requests get time to finish
	}()
	return stopCh, doneCh
}
