package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/config"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
	"github.com/kepfinance/kep-vault/internal/observability/tracing"
	"github.com/kepfinance/kep-vault/internal/services"
)

const (
	requestReadTimeout  = 10 * time.Second
	requestWriteTimeout = 30 * time.Second
	requestIdleTimeout  = 60 * time.Second
)

// Server exposes the vault operations over HTTP. Callers are identified by
// the X-Vault-Caller header; authorization itself stays inside the vault's
// authority check.
type Server struct {
	httpServer *http.Server
	service    *services.Service
}

func New(cfg *config.APIConfig, service *services.Service) *Server {
	srv := &Server{service: service}

	r := chi.NewRouter()
	r.Use(srv.observabilityMiddleware)

	r.Get("/healthcheck", srv.handleHealthcheck)
	r.Get("/v1/vault", srv.handleVaultHealth)
	r.Get("/v1/events", srv.handleRecentEvents)
	r.Post("/v1/deposit", srv.handleDeposit)
	r.Post("/v1/withdraw", srv.handleWithdraw)
	r.Post("/v1/rebalance", srv.handleRebalance)
	r.Post("/v1/compound", srv.handleCompound)
	r.Post("/v1/emergency/{action}", srv.handleEmergency)

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  requestReadTimeout,
		WriteTimeout: requestWriteTimeout,
		IdleTimeout:  requestIdleTimeout,
	}
	return srv
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting vault API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// observabilityMiddleware injects a trace id into the request logger and
// times the request.
func (s *Server) observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceID(r.Context())
		stopTimer := metrics.StartHttpRequestDurationTimer(r.Method, r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		stopTimer(rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
