// Package api exposes the schema service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/danmuck/schemakit/internal/auth"
	"github.com/danmuck/schemakit/internal/observability"
	"github.com/danmuck/schemakit/internal/ratelimit"
	"github.com/danmuck/schemakit/internal/schemas"
	"github.com/danmuck/schemakit/internal/store"
)

const Version = "0.1.0"

// Rules are the per-route rate limits.
type Rules struct {
	Create  ratelimit.Rule
	Read    ratelimit.Rule
	Update  ratelimit.Rule
	Render  ratelimit.Rule
	Preview ratelimit.Rule
}

type Options struct {
	ID             string
	Addr           string
	CorsOrigins    []string
	TrustedProxies []string
}

// Deps are the collaborators the routes run against.
type Deps struct {
	Service *schemas.Service
	Store   store.Store
	Limiter ratelimit.Limiter
	Auth    auth.Resolver
	Rules   Rules
	Logger  zerolog.Logger
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	deps   Deps
	log    zerolog.Logger
	router *gin.Engine
	now    func() time.Time
}

// New builds the router with its middleware and routes registered.
func New(opts Options, deps Deps) *Server {
	observability.RegisterMetrics()
	if opts.ID == "" {
		opts.ID = "schemactl"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(deps.Logger, apiPrefix))
	r.Use(observability.RequestMetricsMiddleware(opts.ID))
	r.Use(corsMiddleware(opts.CorsOrigins))
	trustProxies(r, opts.TrustedProxies, deps.Logger)

	s := &Server{
		ID:       opts.ID,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		deps:     deps,
		log:      deps.Logger,
		router:   r,
		now:      time.Now,
	}
	s.RegisterRoutes()
	return s
}

var loopbackProxies = []string{"127.0.0.1", "::1"}

// trustProxies sets the peers whose forwarding headers ClientIP honours. An
// invalid list is logged and replaced by the loopback default.
func trustProxies(r *gin.Engine, proxies []string, log zerolog.Logger) {
	if len(proxies) == 0 {
		proxies = loopbackProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", proxies).Msg("trusted_proxies_invalid")
		if err := r.SetTrustedProxies(loopbackProxies); err != nil {
			log.Error().Err(err).Msg("trusted_proxies_default_failed")
		}
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if s.deps.Store != nil {
			if err := s.deps.Store.Ping(ctx); err != nil {
				s.log.Warn().Err(err).Msg("ready_check_failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":   false,
					"service": s.ID,
					"error":   "store unavailable",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	for _, ep := range s.endpoints() {
		s.router.Handle(ep.method, ep.path, s.pipeline(ep))
	}
}

// Serve listens on s.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Str("service", s.ID).Msg("server_listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("server_shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

const (
	apiPrefix  = "/api/"
	renderPath = "/api/schemas/:id"
)

var exposedHeaders = []string{
	"Retry-After",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"X-Request-ID",
}

// corsMiddleware restricts the API to the configured origins, except the
// render route, which any page may load.
func corsMiddleware(origins []string) gin.HandlerFunc {
	restricted := cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(origins),
		AllowMethods:  []string{"GET", "POST", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: exposedHeaders,
		MaxAge:        12 * time.Hour,
	})
	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET"},
		AllowHeaders:    []string{"Origin"},
		ExposeHeaders:   exposedHeaders,
		MaxAge:          12 * time.Hour,
	})
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.FullPath() == renderPath {
			public(c)
			return
		}
		restricted(c)
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
