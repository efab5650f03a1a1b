// Package api composes the HTTP surface: router, middleware chain, and
// handler groups.
package api

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usos-inventory/server/pkg/auth"
	"github.com/usos-inventory/server/pkg/config"
	"github.com/usos-inventory/server/pkg/inventory"
	"github.com/usos-inventory/server/pkg/observability"
)

// Dependencies are the wired handler groups the server composes
type Dependencies struct {
	AuthHandlers      *auth.Handlers
	UserHandlers      *auth.UserHandlers
	InventoryHandlers *inventory.Handlers
	AuthMiddleware    *auth.Middleware
	Metrics           *observability.Metrics
}

// Server is the main API server
type Server struct {
	cfg        *config.Config
	logger     *observability.Logger
	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates the API server and builds its route table
func NewServer(cfg *config.Config, logger *observability.Logger, deps Dependencies) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: mux.NewRouter().StrictSlash(true),
	}
	s.buildRoutes(deps)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// buildRoutes registers public routes first, then everything else
// behind the authentication middleware; the user-administration
// endpoints additionally sit behind the staff gate.
func (s *Server) buildRoutes(deps Dependencies) {
	s.router.Use(
		observability.RecoveryMiddleware(s.logger),
		observability.RequestMiddleware(s.logger),
	)
	if deps.Metrics != nil {
		s.router.Use(metricsMiddleware(deps.Metrics))
	}

	deps.AuthHandlers.RegisterPublicRoutes(s.router)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(deps.AuthMiddleware.RequireAuth)
	deps.AuthHandlers.RegisterProtectedRoutes(protected)
	deps.InventoryHandlers.RegisterRoutes(protected)

	staff := protected.NewRoute().Subrouter()
	staff.Use(auth.RequireStaff)
	deps.UserHandlers.RegisterRoutes(staff)
}

// metricsMiddleware records request counts and latencies labeled by the
// matched route template, keeping label cardinality bounded.
func metricsMiddleware(metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}
			metrics.InstrumentHandler(path, next).ServeHTTP(w, r)
		})
	}
}

// Router exposes the route table for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
