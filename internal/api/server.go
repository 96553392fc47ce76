// Package api provides the HTTP gateway for FireEdge.
// It uses the Echo framework to expose oned's XML-RPC methods as REST routes,
// proxy OneFlow, and relay hook events over WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/command"
	"evalgo.org/fireedge/internal/config"
	"evalgo.org/fireedge/internal/hooks"
	"evalgo.org/fireedge/internal/metrics"
	"evalgo.org/fireedge/internal/oneflow"
	"evalgo.org/fireedge/internal/opennebula"
	"evalgo.org/fireedge/internal/validation"
	"evalgo.org/fireedge/internal/zones"
)

// Server represents the FireEdge API server.
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	logger     *zap.Logger
	catalog    *command.Catalog
	pool       *opennebula.Pool
	connector  zones.Connector
	zones      *zones.Resolver
	authMiddle *auth.Middleware
	authn      *auth.Authenticator
	flow       *oneflow.Client
	relay      *hooks.Relay
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	catalog   *command.Catalog
	connector zones.Connector
	dialer    hooks.Dialer
}

// WithCatalog replaces the default command catalog.
func WithCatalog(c *command.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithConnector routes oned calls through c instead of XML-RPC clients.
func WithConnector(c zones.Connector) Option {
	return func(o *options) { o.connector = c }
}

// WithHookDialer replaces the ZeroMQ dialer used by the hook relay.
func WithHookDialer(d hooks.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// New creates a new API server instance.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = validation.New()

	pool := opennebula.NewPool(cfg.OpenNebula.Timeout, logger)
	connector := o.connector
	if connector == nil {
		connector = pool
	}
	catalog := o.catalog
	if catalog == nil {
		catalog = command.DefaultCatalog()
	}

	authMiddle := auth.NewMiddleware(cfg)
	resolver := zones.NewResolver(cfg.OpenNebula, connector, logger)

	server := &Server{
		echo:       e,
		config:     cfg,
		logger:     logger,
		catalog:    catalog,
		pool:       pool,
		connector:  connector,
		zones:      resolver,
		authMiddle: authMiddle,
		authn:      auth.NewAuthenticator(authMiddle.JWT(), resolver, connector, logger),
		flow:       oneflow.New(cfg.OpenNebula.OneFlow, cfg.OpenNebula.Timeout, logger),
		relay:      hooks.NewRelay(cfg.Hooks, o.dialer, logger),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestID())
	s.echo.Use(RequestLogger(s.logger))
	s.echo.Use(Metrics)
	s.echo.Use(middleware.Recover())
	s.echo.Use(SecurityHeaders)

	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	s.echo.Use(ValidateContentType)
	s.echo.Use(ValidateAcceptHeader)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")
	api.POST("/auth", s.login)
	api.GET("/version", s.getVersion, s.authMiddle.RequireAuth)
	api.GET("/commands", s.listCommands)
	api.GET("/zones", s.listZones, s.authMiddle.RequireAuth)

	if s.config.OpenNebula.OneFlow != "" {
		services := api.Group("/service")
		services.GET("", s.listServices, s.authMiddle.RequireAuth)
		services.GET("/:id", s.getService, s.authMiddle.RequireAuth, ValidateNumericID)
		services.POST("/:id/action", s.serviceAction, s.authMiddle.RequireAuth, ValidateNumericID)
		services.DELETE("/:id", s.deleteService, s.authMiddle.RequireAuth, ValidateNumericID)

		templates := api.Group("/service_template")
		templates.GET("", s.listServiceTemplates, s.authMiddle.RequireAuth)
		templates.GET("/:id", s.getServiceTemplate, s.authMiddle.RequireAuth, ValidateNumericID)
		templates.POST("/:id/action", s.serviceTemplateAction, s.authMiddle.RequireAuth, ValidateNumericID)
	}

	api.GET("/hooks/stats", s.hookStats, s.authMiddle.RequireAuth)

	api.Any("/:resource/:action", s.handleCommand, s.authMiddle.RequireAuth)
	api.Any("/:resource/:action/*", s.handleCommand, s.authMiddle.RequireAuth)

	if s.config.Hooks.Enabled {
		s.echo.GET("/ws/hooks", s.handleHooks, s.authMiddle.RequireAuth)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.logger.Info("starting FireEdge API server",
		zap.String("address", addr),
		zap.String("rpc", s.config.OpenNebula.RPC),
		zap.Int("commands", s.catalog.Len()),
		zap.Bool("hooks", s.config.Hooks.Enabled),
		zap.Bool("debug", s.config.Server.Debug),
	)

	// Configure server timeouts
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	if s.config.Server.TLSEnabled {
		return s.echo.StartTLS(addr, s.config.Server.TLSCert, s.config.Server.TLSKey)
	}

	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down FireEdge API server")

	// Hijacked WebSocket connections are not tracked by http.Server. The relay
	// refuses new sessions from here on, so none can slip in while echo drains.
	s.relay.Shutdown()

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("error closing rpc clients: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
