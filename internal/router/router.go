package router

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"container-health/internal/config"
	"container-health/internal/domain"
	"container-health/internal/endpoints"
	"container-health/internal/metrics"
	"container-health/internal/monitor"
	"container-health/internal/util"
)

// NewRouter wires every route. store and stream may be nil; the snapshot
// endpoint then reports storage as disabled and /ws is not registered.
// The middleware chain wraps the whole router so unmatched requests are
// logged and counted too.
func NewRouter(mon *monitor.Monitor, store domain.SnapshotStore, stream http.Handler, webSlogger *util.ServiceLogger) http.Handler {
	r := mux.NewRouter()

	addRoutes(r, mon, store, stream, webSlogger)

	return alice.New(requestID, alice.Constructor(loggingMiddleware(webSlogger)), requestCounter).Then(r)
}

func addRoutes(r *mux.Router, mon *monitor.Monitor, store domain.SnapshotStore, stream http.Handler, webSlogger *util.ServiceLogger) {

	dashboardHandler := &endpoints.Dashboard{}
	dashboardHandler.Init(mon, webSlogger)

	healthHandler := &endpoints.Health{}
	healthHandler.Init(mon, webSlogger)

	snapshotsHandler := &endpoints.Snapshots{}
	snapshotsHandler.Init(store, webSlogger)

	r.HandleFunc("/", dashboardHandler.DashboardHandler).Methods("GET")
	r.HandleFunc("/api/metrics", healthHandler.UsageHandler).Methods("GET")
	r.HandleFunc("/api/health", healthHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/api/score", healthHandler.ScoreHandler).Methods("GET")
	r.HandleFunc("/healthz", healthHandler.LivenessHandler).Methods("GET")
	r.HandleFunc("/snapshots/{limit}/{offset}", snapshotsHandler.GetSnapshotsHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	if stream != nil {
		r.Handle("/ws", stream)
	}
}

func NewServer(addr string, handler http.Handler, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Run serves until ctx is cancelled and then shuts the server down, waiting
// at most shutdownTimeout for in-flight requests.
func Run(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, webSlogger *util.ServiceLogger) error {
	errCh := make(chan error, 1)
	go func() {
		webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Listening on", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Shutting down server...")

	if err := gracefulShutdown(server, shutdownTimeout); err != nil {
		webSlogger.LogEvent(util.LOG_LEVEL_ERROR, "Server stopped with error:", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Server stopped gracefully.")
	return nil
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

const requestIDHeader = "X-Request-ID"

// requestID keeps a caller supplied X-Request-ID or assigns a new one, and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *util.ServiceLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Request: %s %s id=%s", r.Method, r.RequestURI, r.Header.Get(requestIDHeader)))
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is required by the websocket upgrade.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func requestCounter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
