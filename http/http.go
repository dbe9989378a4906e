// Package http serves the liveness endpoint hosting platforms poll to keep
// the process awake.
package http

import (
	"errors"
	"fmt"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"golang.org/x/net/context"
	"net"
	"net/http"
	"time"
)

// Ready reports whether the bot is connected.
type Ready func() bool

func Handler(ready Ready) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rootHandler)
	mux.HandleFunc("/status", statusHandler(ready))
	return mux
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	logRequest(r)
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Bot is alive!")
}

func statusHandler(ready Ready) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logRequest(r)
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "connecting")
			return
		}
		fmt.Fprint(w, "ready")
	}
}

func logRequest(r *http.Request) {
	dlog.Debug("Got request!", "method", r.Method, "uri", r.RequestURI)
}

// Serve listens on addr until ctx is cancelled and then shuts down gracefully.
func Serve(ctx context.Context, addr string, ready Ready) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("keepalive listen on %s: %w", addr, err)
	}
	return serve(ctx, listener, ready)
}

func serve(ctx context.Context, listener net.Listener, ready Ready) error {
	server := &http.Server{
		Handler:           Handler(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(listener)
	}()
	dlog.Info("keepalive server started", "addr", listener.Addr().String())

	select {
	case err := <-errs:
		return fmt.Errorf("keepalive server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("keepalive shutdown: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	dlog.Info("keepalive server stopped")
	return nil
}
