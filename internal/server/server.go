package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/saimjr/accounting-assistant/internal/categorize"
	"github.com/saimjr/accounting-assistant/internal/coa"
	"github.com/saimjr/accounting-assistant/internal/config"
	"github.com/saimjr/accounting-assistant/internal/db"
	"github.com/saimjr/accounting-assistant/internal/llm"
	"github.com/saimjr/accounting-assistant/internal/server/middleware"
	"github.com/saimjr/accounting-assistant/internal/server/ratelimit"
	"github.com/saimjr/accounting-assistant/internal/types"
	"go.uber.org/zap"
)

// Version is reported by the banner and health endpoints.
const Version = "2.0.0"

// Server represents the HTTP server
type Server struct {
	cfg         *config.Config
	store       db.Store
	llm         llm.Client
	generator   *coa.Generator
	categorizer *categorize.Categorizer
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authHandler *AuthHandler
	router      chi.Router
	httpServer  *http.Server
}

// New creates a server on top of an opened store and model client. The
// caller keeps ownership of both.
func New(cfg *config.Config, store db.Store, client llm.Client) (*Server, error) {
	passwordConfig, err := config.NewPasswordConfig(cfg.Auth)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create password config")
	}
	jwtConfig, err := config.NewJWTConfig(cfg.Auth)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create JWT config")
	}

	s := &Server{
		cfg:   cfg,
		store: store,
		llm:   client,
		generator: coa.NewGenerator(client,
			coa.WithRemediation(coa.Remediation(cfg.Pipeline.BandingRemediation)),
			coa.WithStageTimeout(cfg.LLM.Timeout()),
		),
		categorizer: categorize.New(client,
			categorize.WithConfidencePolicy(categorize.ConfidencePolicy(cfg.Categorizer.FallbackConfidence)),
			categorize.WithCacheTTL(time.Duration(cfg.Categorizer.CacheTTLSecs)*time.Second),
			categorize.WithConcurrency(cfg.Categorizer.BatchConcurrency),
		),
		rateLimiter: ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit)),
		jwtService:  NewJWTService(jwtConfig),
	}
	s.authHandler = NewAuthHandler(NewUserService(store, passwordConfig), s.jwtService)
	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // five model calls per generation
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.withLogging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.withRateLimit)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.authHandler.Register)
		r.Post("/login", s.authHandler.Login)
		r.With(middleware.AuthMiddleware(s.jwtService.AsTokenValidator())).Put("/password", s.authHandler.UpdatePassword)
	})

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/generate-chart-of-accounts", s.handleLegacyGenerate)
		r.Post("/validate-input", s.handleValidateInput)
		r.Post("/categorize-transaction", s.handleCategorizeTransaction)
		r.Post("/categorize-transactions", s.handleCategorizeTransactions)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(s.jwtService.AsTokenValidator()))

			r.Post("/company-profile", s.handleCreateCompanyProfile)
			r.Get("/company-profile", s.handleListCompanyProfiles)
			r.Get("/company-profile/{company_id}", s.handleGetCompanyProfile)
			r.Delete("/company-profile/{company_id}", s.handleDeleteCompanyProfile)

			r.Post("/coa/generate/{company_id}", s.handleGenerateCOA)
			r.Post("/coa/upload/{company_id}", s.handleUploadCOA)
			r.Get("/coa/{company_id}", s.handleGetCOA)

			r.Post("/contacts/{company_id}", s.handleCreateContact)
			r.Get("/contacts/{company_id}", s.handleListContacts)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{company_id}", s.handleListTransactions)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errorResponse(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves requests until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.Close()
		if ok {
			return eris.Wrap(err, "server error")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return eris.Wrap(err, "server shutdown failed")
	}

	zap.L().Info("server stopped")
	return nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withLogging logs every request once it completes.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// withRateLimit rejects clients that exhausted their bucket.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller by remote IP. Forwarding headers are
// ignored because they are client controlled.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Rate limit exceeded. Please try again later.",
		"status_code": http.StatusTooManyRequests,
		"limit":       info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	zap.L().Warn("rate limit exceeded",
		zap.String("client", clientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
	)

	jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]any{"error": message, "status_code": status})
}

// writeError maps err onto a status code and writes it. Server-side failures
// are logged and reported without their cause.
func writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		errorResponse(w, status, "Internal server error")
		return
	}

	body := map[string]any{"error": err.Error(), "status_code": status}

	var uploadErr *coa.UploadError
	var validErr *types.ValidationError
	switch {
	case errors.As(err, &uploadErr):
		body["problems"] = uploadErr.Problems
	case errors.As(err, &validErr):
		body["field"] = validErr.Field
	}

	jsonResponse(w, status, body)
}
