// Package portal serves the admin portal: the shell page, the live
// websocket each open page talks to, metrics and health checks.
package portal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanacaring/cmsportal/internal/config"
	"github.com/nanacaring/cmsportal/internal/live"
	"github.com/nanacaring/cmsportal/internal/report"
	"github.com/nanacaring/cmsportal/internal/state"
	"github.com/nanacaring/cmsportal/internal/state/auth"
	"github.com/nanacaring/cmsportal/pkg/assets"
	"github.com/nanacaring/cmsportal/pkg/middleware"
	"github.com/nanacaring/cmsportal/pkg/pref"
)

//go:embed static
var staticFiles embed.FS

// DefaultCurrency is used for amounts that carry no currency.
const DefaultCurrency = "USD"

// Options are the collaborators of a Server.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	Auth auth.Authenticator
	API  state.API
	// Prefs stores UI preferences per user. Nil disables persistence.
	Prefs    pref.KV
	Reporter report.Reporter

	Metrics  *middleware.Collector
	Gatherer prometheus.Gatherer

	Currency string
	Now      func() time.Time
}

// Server serves portal pages.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	auth     auth.Authenticator
	api      state.API
	prefs    pref.KV
	reporter report.Reporter
	metrics  *middleware.Collector
	gatherer prometheus.Gatherer
	currency string
	now      func() time.Time

	upgrader *websocket.Upgrader
	static   fs.FS
	manifest *assets.Manifest
	assets   assets.Resolver

	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("portal: config is required")
	}
	if opts.Auth == nil || opts.API == nil {
		return nil, errors.New("portal: authenticator and api are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reporter == nil {
		opts.Reporter = report.Log{Logger: opts.Logger}
	}
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	manifest, err := assets.Fingerprint(static)
	if err != nil {
		return nil, fmt.Errorf("portal: fingerprint static files: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      opts.Config,
		logger:   opts.Logger,
		auth:     opts.Auth,
		api:      opts.API,
		prefs:    opts.Prefs,
		reporter: opts.Reporter,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		currency: opts.Currency,
		now:      opts.Now,
		upgrader: live.NewUpgrader(opts.Config.Server.AllowedOrigins),
		static:   static,
		manifest: manifest,
		assets:   assets.NewResolver(manifest, "/static/"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Handler returns the portal's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/", s.serveShell)
	r.Get("/ws", s.serveLive)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", assets.Handler(s.static, s.manifest)))
	return r
}

func (s *Server) serveShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := writeShell(w, s.assets); err != nil {
		s.logger.Error("render shell", "error", err)
	}
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		s.metrics.WebSocketError("upgrade")
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	ls := live.New(conn, live.Config{
		PingInterval: s.cfg.Server.PingInterval,
		Logger:       s.logger.With("request_id", chimw.GetReqID(r.Context())),
		Reporter:     s.reporter,
		Metrics:      s.metrics,
	})
	p := s.newPage(ls)
	defer p.close()

	if err := ls.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		ls.Logger().Warn("session ended", "error", err)
	}
}

// Close ends every live session and waits for them to finish or ctx to
// expire.
func (s *Server) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
