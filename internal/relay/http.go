package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Router serves the relay websocket on every path not claimed by /healthz
// or /metrics, so clients may dial the bare host. gatherer may be nil to
// leave metrics off.
func (s *Server) Router(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(s.log))
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintln(w, "ok")
	})
	if gatherer != nil {
		r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.PathPrefix("/").Handler(s)
	return r
}

func accessLog(logger *slog.Logger) mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			logger.Debug("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	}
}

// Serve runs the relay on ln until ctx is cancelled, then disconnects
// every client and shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener, gatherer prometheus.Gatherer) error {
	srv := &http.Server{Handler: s.Router(gatherer), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.Info("relay listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Shutdown does not track hijacked websocket connections.
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
