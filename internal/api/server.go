// Package api provides the HTTP surface: the authenticated scraper agent
// endpoint plus public realm, auction, and summary queries.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lotkeeper/internal/config"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/service"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/types"
)

// Service interfaces for dependency injection and testing

// IngestServiceInterface defines the snapshot submission operations
type IngestServiceInterface interface {
	SubmitSnapshot(ctx context.Context, realmID int64, listings []models.SnapshotListing) (*service.SnapshotResult, error)
}

// RealmServiceInterface defines the realm resolution operations
type RealmServiceInterface interface {
	Resolve(ctx context.Context, server, realmSlug string) (*models.ServerRealm, error)
	Register(ctx context.Context, server, realm string) (*models.ServerRealm, error)
	List(ctx context.Context) ([]*models.ServerRealm, error)
}

// AuctionServiceInterface defines the listing browse operations
type AuctionServiceInterface interface {
	Browse(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error)
	Deals(ctx context.Context, realmID int64, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error)
	TopItems(ctx context.Context, realmID int64, limit int) ([]*storage.TopItem, error)
	Items(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) (*types.Paginated[*models.Item], error)
	Stats(ctx context.Context, realmID int64) (*service.RealmStats, error)
}

// SummaryServiceInterface defines the time-bucketed query operations
type SummaryServiceInterface interface {
	PriceHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemPriceHourlySummary, error)
	ActivityHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemActivityHourlySummary, error)
	RealmActivityRange(ctx context.Context, realmID int64, from, to time.Time, bucket time.Duration) ([]*models.RealmActivityRollup, error)
}

// HealthChecker reports reachability of a backing store
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server

	ingestService  IngestServiceInterface
	realmService   RealmServiceInterface
	auctionService AuctionServiceInterface
	summaryService SummaryServiceInterface

	postgres   HealthChecker
	clickhouse HealthChecker

	cfg *config.Config
}

// NewServer creates a new API server instance.
func NewServer(
	cfg *config.Config,
	ingestService IngestServiceInterface,
	realmService RealmServiceInterface,
	auctionService AuctionServiceInterface,
	summaryService SummaryServiceInterface,
	postgres HealthChecker,
	clickhouse HealthChecker,
) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		ingestService:  ingestService,
		realmService:   realmService,
		auctionService: auctionService,
		summaryService: summaryService,
		postgres:       postgres,
		clickhouse:     clickhouse,
		cfg:            cfg,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Scraper agent surface: token auth plus per-host rate limiting.
	agentLimiter := NewAgentRateLimiter(s.cfg.RateLimit.AgentRPS, s.cfg.RateLimit.AgentBurst)
	agent := api.PathPrefix("/agent").Subrouter()
	agent.Use(AgentAuthMiddleware(s.cfg.Agent.Token))
	agent.Use(RateLimitMiddleware(agentLimiter))
	agent.HandleFunc("/{server}/{realm}/auctions", s.handleSubmitSnapshot).Methods("POST")

	// Public read surface.
	api.HandleFunc("/realms", s.handleListRealms).Methods("GET")
	api.HandleFunc("/realms", s.handleCreateRealm).Methods("POST")
	api.HandleFunc("/realms/{server}/{realm}/stats", s.handleRealmStats).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/auctions", s.handleBrowseAuctions).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/auctions/deals", s.handleDeals).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/items", s.handleListItems).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/items/top", s.handleTopItems).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/items/{itemId}/prices/hourly", s.handlePriceHourly).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/items/{itemId}/activity/hourly", s.handleActivityHourly).Methods("GET")
	api.HandleFunc("/realms/{server}/{realm}/activity", s.handleRealmActivity).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	checks := map[string]string{}

	check := func(name string, hc HealthChecker) {
		if hc == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hc.Ping(ctx); err != nil {
			checks[name] = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	check("postgres", s.postgres)
	check("clickhouse", s.clickhouse)

	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "lotkeeper",
		"checks":  checks,
	})
}

// Router returns the configured router. Used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
