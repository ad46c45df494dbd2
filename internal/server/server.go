package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"storformat-pricing/internal/config"
	"storformat-pricing/internal/pricing"
	"storformat-pricing/internal/storage"
)

// Store is the catalog/quote persistence the handlers need.
type Store interface {
	GetMaterial(ctx context.Context, materialID string) (*pricing.Material, error)
	GetFinish(ctx context.Context, finishID string) (*pricing.Finish, error)
	GetProduct(ctx context.Context, productID string) (*pricing.Product, error)
	GetQuoteConfig(ctx context.Context, tenantID string) (pricing.QuoteConfig, error)
	ListMaterials(ctx context.Context, tenantID string) ([]storage.MaterialSummary, error)
	SaveQuote(ctx context.Context, quote storage.Quote) (int64, error)
	GetQuoteStatistics(ctx context.Context) (*storage.QuoteStatistics, error)
	ExportQuotesToExcel(ctx context.Context, tenantID, dir string) (string, error)
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Notifier reports saved quotes that need admin attention.
type Notifier interface {
	QuoteComputed(quote storage.Quote, result pricing.QuoteResult)
}

// Syncer mirrors the tenant catalog from the pricing hub.
type Syncer interface {
	Sync(ctx context.Context, tenantID string) (int, error)
}

type Server struct {
	logger   *zap.Logger
	store    Store
	notifier Notifier
	syncer   Syncer
	cfg      *config.Config
}

func New(logger *zap.Logger, store Store, notifier Notifier, syncer Syncer, cfg *config.Config) *Server {
	return &Server{
		logger:   logger,
		store:    store,
		notifier: notifier,
		syncer:   syncer,
		cfg:      cfg,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/quote", s.handleQuote)
		r.Post("/quote/m2", s.handleQuoteM2)
		r.Get("/materials", s.handleListMaterials)
		r.Get("/stats", s.handleStats)
		r.Post("/admin/sync", s.handleSync)
		r.Post("/admin/export", s.handleExport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rateLimit counts requests per client IP in a one-minute window. Fails
// open: a broken counter must not take quoting down.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		exceeded, err := s.store.CheckRateLimit(r.Context(), host, s.cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			s.logger.Warn("Rate limit check failed", zap.String("client", host), zap.Error(err))
		} else if exceeded {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
