package edge

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorrc/devexchange/internal/config"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

// Server is the edge router: health and metrics endpoints, the /api proxy
// and the guarded frontend proxy.
type Server struct {
	router  chi.Router
	limiter *RateLimiter
}

// NewServer builds the edge router from configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	frontend, err := parseUpstream("EDGE_FRONTEND_UPSTREAM", cfg.Edge.FrontendUpstream)
	if err != nil {
		return nil, err
	}
	api, err := parseUpstream("EDGE_API_UPSTREAM", cfg.Edge.APIUpstream)
	if err != nil {
		return nil, err
	}

	ips, err := NewClientIP(cfg.Edge.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("EDGE_TRUSTED_PROXIES: %w", err)
	}

	s := &Server{router: chi.NewRouter()}
	r := s.router

	r.Use(RequestID)
	r.Use(RequestLogger(logger, ips))
	r.Use(RecoveryLogger(logger))

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
			ClientIP:          ips,
		})
		r.Use(s.limiter.Middleware)
	}

	probe := &http.Client{Timeout: 3 * time.Second}
	health := NewHealthHandler(map[string]HealthChecker{
		"frontend": Upstream{URL: frontend.String(), Client: probe},
		"api":      Upstream{URL: api.String(), Client: probe},
	}, cfg.App.Version)

	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	if cfg.App.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Edge.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Handle("/*", http.StripPrefix("/api", newProxy(api, logger)))
	})

	r.Group(func(r chi.Router) {
		r.Use(Guard(cfg.Edge.SessionCookie))
		r.Use(NoCache)
		site := newProxy(frontend, logger)
		r.Handle("/", site)
		r.Handle("/*", site)
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources. The HTTP listener is owned by the caller.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func newProxy(target *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := logging.GetRequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.LoggerFromContext(r.Context(), logger).Warn("upstream unavailable",
				"upstream", target.Host,
				"path", r.URL.Path,
				"error", err,
			)
			writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "Upstream unavailable"})
		},
	}
}

func parseUpstream(name, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute URL: %q", name, raw)
	}
	return u, nil
}
