package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/handler"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/sse"
)

// Sessions is what the HTTP surface needs from the session reconciler.
type Sessions interface {
	handler.SessionService
	handler.Rewarder
}

// Deps collects the services the routes delegate to.
type Deps struct {
	Remote    handler.Pinger
	Sessions  Sessions
	Lifecycle handler.Lifecycle
	Boosts    handler.BoostService
	Hub       *sse.Hub
	Clock     domain.Clock
	DeviceID  string
}

type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server instance
func NewServer(port int, apiKey string, trustedProxies []string, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(apiKey, trustedProxies, deps),
			ReadHeaderTimeout: ReadHeaderTimeout,
		},
	}
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(apiKey string, trustedProxies []string, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Chi middleware executes in order defined (outermost to innermost)
	guard := NewRequestGuard(deps.Clock)
	proxies := ParseTrustedProxies(trustedProxies)

	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(apiKey, proxies, guard))
	r.Use(RateLimitMiddleware(proxies, guard))
	r.Use(RequestSizeLimitMiddleware(MaxRequestBytes))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(deps.Remote))
	r.Get("/version", handler.HandleVersion(deps.DeviceID))
	r.Handle("/metrics", promhttp.Handler())

	// UI event stream
	r.Get(EventStreamPath, sse.Handler(deps.Hub))

	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Lifecycle, deps.Clock)
	boostHandler := handler.NewBoostHandler(deps.Boosts, deps.Clock)
	rewardHandler := handler.NewRewardHandler(deps.Sessions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.HandleStatus)
			r.Post("/start", sessionHandler.HandleStart)
			r.Post("/stop", sessionHandler.HandleStop)
			r.Post("/acknowledge", sessionHandler.HandleAcknowledge)
			r.Post("/sync", sessionHandler.HandleSync)
		})

		r.Route("/lifecycle", func(r chi.Router) {
			r.Post("/foreground", sessionHandler.HandleForeground)
			r.Post("/background", sessionHandler.HandleBackground)
		})

		r.Route("/boosts", func(r chi.Router) {
			r.Get("/", boostHandler.HandleList)
			r.Post("/", boostHandler.HandleGrant)
			r.Delete("/{kind}", boostHandler.HandleWithdraw)
		})

		r.Post("/rewards", rewardHandler.HandleReward)
	})

	return r
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default status
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush lets the SSE stream flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func isQuietPath(path string) bool {
	for _, p := range QuietPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if isQuietPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
