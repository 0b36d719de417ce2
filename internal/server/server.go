// Package server exposes the procurement operations over HTTP: the external
// /ext endpoints the mobile app calls, the /v1/admin surface, health, metrics
// and the swagger docs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/prisma-build/procurement-api/internal/middleware"
	"github.com/prisma-build/procurement-api/internal/observability"
	"github.com/prisma-build/procurement-api/internal/procurement"
	"github.com/prisma-build/procurement-api/internal/types"
)

// Version is reported on the health endpoint.
const Version = "1.2.0"

// Server represents the HTTP server
type Server struct {
	orch        *procurement.Orchestrator
	httpServer  *http.Server
	logger      *logrus.Logger
	config      *ServerConfig
	metrics     *observability.Metrics
	rateLimiter *middleware.RateLimiter
	validator   *middleware.ValidationMiddleware
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`

	// Mode is the provenance label shown on /health, e.g. "mock-sandbox".
	Mode string `yaml:"-"`

	RateLimit  *middleware.RateLimitConfig  `yaml:"rate_limit"`
	Validation *middleware.ValidationConfig `yaml:"validation"`
}

// NewServer creates a new server instance
func NewServer(orch *procurement.Orchestrator, config *ServerConfig, metrics *observability.Metrics, logger *logrus.Logger) (*Server, error) {
	validator, err := middleware.NewValidationMiddleware(config.Validation, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validation middleware: %w", err)
	}

	return &Server{
		orch:        orch,
		logger:      logger,
		config:      config,
		metrics:     metrics,
		rateLimiter: middleware.NewRateLimiter(config.RateLimit, logger),
		validator:   validator,
	}, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	r := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + s.config.Port,
		Handler:        r,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.WithFields(logrus.Fields{
		"port": s.config.Port,
		"mode": s.config.Mode,
	}).Info("Starting procurement API server")
	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping procurement API server")
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.contentTypeMiddleware)
	r.Use(s.rateLimiter.Middleware)
	r.Use(s.validator.Middleware)

	// External endpoints consumed by the app.
	ext := r.PathPrefix("/ext").Subrouter()
	// OPTIONS is listed so CORS preflights reach the middleware chain.
	ext.HandleFunc("/suppliers/search", s.handleSupplierSearch).Methods("POST", "OPTIONS")
	ext.HandleFunc("/suppliers/quote", s.handleQuote).Methods("POST", "OPTIONS")
	ext.HandleFunc("/route/eta", s.handleRouteETA).Methods("POST", "OPTIONS")
	ext.HandleFunc("/sources", s.handleSources).Methods("GET")
	ext.HandleFunc("/materials", s.handleMaterials).Methods("GET")

	// Admin surface.
	admin := r.PathPrefix("/v1/admin").Subrouter()
	admin.HandleFunc("/catalog/reload", s.handleCatalogReload).Methods("POST")
	admin.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	admin.HandleFunc("/cache", s.handleCacheClear).Methods("DELETE")

	r.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.setupSwaggerRoutes(r)

	return r
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveHTTP(route, r.Method, wrapped.statusCode, elapsed)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": elapsed.Milliseconds(),
			"user_agent":  r.UserAgent(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && contentType != "" {
				s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) handleSupplierSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	bundle, err := s.orch.Search(r.Context(), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req types.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	quote, err := s.orch.Quote(r.Context(), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleRouteETA(w http.ResponseWriter, r *http.Request) {
	var req types.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	estimate, err := s.orch.RouteETA(r.Context(), req)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, estimate)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orch.Sources(r.Context())
	if err != nil {
		s.writeOperationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	materials := s.orch.Materials()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"materials": materials,
		"count":     len(materials),
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.HealthStatus{
		Status:    "healthy",
		Version:   Version,
		Mode:      s.config.Mode,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	n, err := s.orch.ReloadCatalog()
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.metrics.CatalogReloaded()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":  true,
		"suppliers": n,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.CacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.orch.ClearCache()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// Helper functions

// writeOperationError maps typed procurement errors onto HTTP statuses.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; the status is mostly for the access log.
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	typed, ok := procurement.AsError(err)
	if !ok {
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch typed.Kind {
	case procurement.KindInvalidArgument:
		s.writeErrorResponse(w, http.StatusBadRequest, typed.Message)
	case procurement.KindMaterialNotFound, procurement.KindSupplierNotFound:
		s.writeErrorResponse(w, http.StatusNotFound, typed.Message)
	case procurement.KindOverloaded:
		w.Header().Set("Retry-After", strconv.Itoa(int(typed.RetryAfter.Seconds())))
		s.writeErrorResponse(w, http.StatusTooManyRequests, typed.Message)
	default:
		s.writeErrorResponse(w, http.StatusInternalServerError, typed.Message)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "api_error",
			"code":    statusCode,
		},
		"timestamp": time.Now().Unix(),
	}

	json.NewEncoder(w).Encode(errorResp)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
