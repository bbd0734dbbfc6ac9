package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nanacaring/cmsportal/internal/api"
	"github.com/nanacaring/cmsportal/internal/auth"
	"github.com/nanacaring/cmsportal/internal/cache"
	"github.com/nanacaring/cmsportal/internal/config"
	"github.com/nanacaring/cmsportal/internal/errors"
	"github.com/nanacaring/cmsportal/internal/portal"
	"github.com/nanacaring/cmsportal/internal/report"
	"github.com/nanacaring/cmsportal/pkg/middleware"
	"github.com/nanacaring/cmsportal/pkg/pref"
)

func serveCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		Long: `Start the portal server.

Settings come from cmsportal.yaml, .env files and CMSPORTAL_* variables.
Flags override all of them.

Examples:
  cmsportal serve
  cmsportal serve --server-addr=:9090 --api-base-url=https://api.example.test
  cmsportal serve --prefs-backend=sql --db-driver=sqlite3 --db-dsn=portal.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Dir: dir, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&dir, "config-dir", "", "Directory holding cmsportal.yaml and .env (default: working directory)")
	cmd.Flags().StringP("server-addr", "a", ":8080", "Address to listen on")
	cmd.Flags().String("api-base-url", "", "Backend API base URL")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().String("prefs-backend", config.BackendMemory, "Preference store: memory, sql or s3")
	cmd.Flags().String("db-driver", "postgres", "Database driver: postgres or sqlite3")
	cmd.Flags().String("db-dsn", "", "Database connection string")
	cmd.Flags().Bool("auth-local", false, "Authenticate local admins before the backend")
	cmd.Flags().Bool("debug", false, "Log every dispatched action")

	return cmd
}

// stack holds everything runServe builds from the configuration.
type stack struct {
	auth     auth.Authenticator
	api      *api.Client
	prefs    pref.KV
	reporter report.Reporter
	metrics  *middleware.Collector
	registry *prometheus.Registry
	db       *sqlx.DB
}

func (s *stack) close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.reporter != nil {
		s.reporter.Close()
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger()
	slog.SetDefault(logger)

	st, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	srv, err := portal.New(portal.Options{
		Config:   cfg,
		Logger:   logger,
		Auth:     st.auth,
		API:      st.api,
		Prefs:    st.prefs,
		Reporter: st.reporter,
		Metrics:  st.metrics,
		Gatherer: gatherer(st.registry),
	})
	if err != nil {
		return errors.New("R001").Wrap(err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("portal listening", "addr", cfg.Server.Addr, "api", cfg.API.BaseURL, "prefs", cfg.Prefs.Backend)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("R001").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Warn("portal shutdown", "err", err)
	}
	return nil
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	st := &stack{}
	host, _ := os.Hostname()
	st.reporter = report.New(report.Config{
		RollbarToken: cfg.Rollbar.Token,
		Environment:  cfg.Env,
		Version:      version,
		Host:         host,
	}, logger)

	if cfg.Metrics.Enabled {
		st.registry = prometheus.NewRegistry()
		st.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		st.metrics = middleware.NewCollector(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(st.registry),
		)
	}

	client, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Cache:   cache.New(cache.Options{Size: cfg.API.CacheSize, TTL: cfg.API.CacheTTL}),
		Logger:  logger,
	})
	if err != nil {
		st.close()
		return nil, errors.New("C002").Wrap(err)
	}
	st.api = client

	if cfg.Auth.Local || cfg.Prefs.Backend == config.BackendSQL {
		st.db, err = openDB(ctx, cfg.DB)
		if err != nil {
			st.close()
			return nil, err
		}
	}

	chain := auth.Chain{}
	if cfg.Auth.Local {
		admins := auth.SQLAdmins{DB: st.db}
		if err := admins.Migrate(ctx); err != nil {
			st.close()
			return nil, errors.New("S001").Wrap(err)
		}
		chain = append(chain, auth.Local{
			Admins: admins,
			Signer: auth.Signer{Secret: []byte(cfg.Auth.Secret), TTL: cfg.Auth.TokenTTL},
		})
	}
	st.auth = append(chain, auth.Remote{Client: client})

	st.prefs, err = prefs(ctx, cfg, st.db)
	if err != nil {
		st.close()
		return nil, err
	}
	return st, nil
}

func openDB(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.New("S001").WithDetail(cfg.Driver).Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.New("S001").WithDetail(cfg.Driver).Wrap(err)
	}
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func prefs(ctx context.Context, cfg *config.Config, db *sqlx.DB) (pref.KV, error) {
	switch cfg.Prefs.Backend {
	case config.BackendSQL:
		kv := pref.SQLKV{DB: db}
		if err := kv.Migrate(ctx); err != nil {
			return nil, errors.New("S001").Wrap(err)
		}
		return kv, nil
	case config.BackendS3:
		region := cfg.Prefs.Region
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			return nil, errors.New("S002").WithDetail("no region: set prefs.region or AWS_REGION")
		}
		client := pref.NewS3Client(pref.S3Options{Region: region, Endpoint: cfg.Prefs.Endpoint})
		return pref.S3KV{Client: client, Bucket: cfg.Prefs.Bucket}, nil
	default:
		return pref.NewMemoryKV(), nil
	}
}

// gatherer avoids handing portal a typed nil.
func gatherer(r *prometheus.Registry) prometheus.Gatherer {
	if r == nil {
		return nil
	}
	return r
}
