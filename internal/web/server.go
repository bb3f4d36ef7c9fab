// Package web serves the digital will page over HTTP. All handlers drive a
// single app.Page and are serialized so only one wallet action runs at a
// time.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/metrics"
)

// Endpoints served by the page.
const (
	IndexEndpoint      = "/"
	HealthEndpoint     = "/healthz"
	ConnectEndpoint    = "/connect"
	DisconnectEndpoint = "/disconnect"
	RefreshEndpoint    = "/refresh"
	WillsEndpoint      = "/wills"
	WillIDParam        = "id"
	CheckInEndpoint    = "/wills/{" + WillIDParam + "}/checkin"
	APIWillsEndpoint   = "/api/wills"
	APIStateEndpoint   = "/api/state"
	APIMetricsEndpoint = "/api/metrics"
)

// PageTitle is the heading of the page.
const PageTitle = "Digital Will Manager"

// DefaultActionTimeout bounds one wallet action, including receipt waits.
const DefaultActionTimeout = 2 * time.Minute

//go:embed templates/page.html
var templateFS embed.FS

// Logger is the logging surface used by the server.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Config configures a Server.
type Config struct {
	Page           *app.Page
	Notifications  *app.Recorder
	AllowedOrigins []string
	ActionTimeout  time.Duration
	Logger         Logger
	Metrics        *metrics.Metrics
}

// Server is the HTTP front-end of a Page.
type Server struct {
	page          *app.Page
	notifications *app.Recorder
	logger        Logger
	metrics       *metrics.Metrics
	timeout       time.Duration
	tmpl          *template.Template
	router        *chi.Mux
	origins       []string

	// actions serializes wallet actions.
	actions sync.Mutex
}

// New builds the server and its router.
func New(conf *Config) (*Server, error) {
	if conf == nil || conf.Page == nil {
		return nil, errors.New("missing page")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	s := &Server{
		page:          conf.Page,
		notifications: conf.Notifications,
		logger:        conf.Logger,
		metrics:       conf.Metrics,
		timeout:       conf.ActionTimeout,
		tmpl:          tmpl,
	}
	if s.notifications == nil {
		s.notifications = app.NewRecorder(0)
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.timeout <= 0 {
		s.timeout = DefaultActionTimeout
	}

	s.initRouter(conf.AllowedOrigins)
	return s, nil
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Debug("web server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) initRouter(origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.origins = origins

	s.router = chi.NewRouter()
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.registerHandlers()
}

func (s *Server) registerHandlers() {
	s.router.Get(IndexEndpoint, s.index)
	s.router.Get(HealthEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	s.router.Group(func(r chi.Router) {
		r.Use(s.checkOrigin)
		r.Post(ConnectEndpoint, s.connect)
		r.Post(DisconnectEndpoint, s.disconnect)
		r.Post(RefreshEndpoint, s.refresh)
		r.Post(WillsEndpoint, s.mint)
		r.Post(CheckInEndpoint, s.checkIn)
	})
	s.router.Get(APIWillsEndpoint, s.apiWills)
	s.router.Get(APIStateEndpoint, s.apiState)
	s.router.Get(APIMetricsEndpoint, s.apiMetrics)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s -> %d (%s) id=%s", r.Method, r.URL.Path, ww.Status(), time.Since(start),
			middleware.GetReqID(r.Context()))
	})
}

// checkOrigin refuses actions posted by a page that is neither this server
// nor an allowed origin. CORS alone does not stop a cross-site form post
// from reaching the wallet. Requests naming no origin at all, as from curl,
// pass.
func (s *Server) checkOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := requestOrigin(r)
		if origin == "" || origin == selfOrigin(r) || matchOrigin(s.origins, origin) {
			next.ServeHTTP(w, r)
			return
		}
		s.logger.Debug("refused %s %s from origin %s", r.Method, r.URL.Path, origin)
		ErrForbiddenOrigin.Write(w)
	})
}

// requestOrigin is the Origin header, or the scheme and host of the Referer
// when Origin is missing.
func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return strings.ToLower(o)
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "null"
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func selfOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return strings.ToLower(scheme + "://" + r.Host)
}

// matchOrigin reports whether origin fits one of the patterns. A "*" in a
// pattern stands for any run of characters without a slash, as in
// "http://localhost:*".
func matchOrigin(patterns []string, origin string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if ok, err := path.Match(strings.ToLower(p), origin); err == nil && ok {
			return true
		}
	}
	return false
}
