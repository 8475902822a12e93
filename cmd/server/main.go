package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/database"
	"gatekeeper/internal/platform/health"
	"gatekeeper/internal/platform/logger"
	redisclient "gatekeeper/internal/platform/redis"
	rlconfig "gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/seeder"
	usershandler "gatekeeper/internal/users/handler"
	usersmodels "gatekeeper/internal/users/models"
	usersservice "gatekeeper/internal/users/service"
	usersstore "gatekeeper/internal/users/store"
	"gatekeeper/pkg/platform/middleware/auth"
	"gatekeeper/pkg/platform/middleware/metadata"
	"gatekeeper/pkg/platform/middleware/request"
)

const (
	tokenIssuer   = "gatekeeper"
	tokenAudience = "gatekeeper-api"
	maxBodyBytes  = 1 << 20
)

func main() {
	if err := run(); err != nil {
		slog.Error("gatekeeper exited", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until SIGINT/SIGTERM or a component fails.
func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() && cfg.UsesDevSigningKey() {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	rlCfg, err := rlconfig.Load(cfg.RateLimitConfigPath)
	if err != nil {
		return err
	}
	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	redis, err := redisclient.New(ctx, cfg.Redis, reg)
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close() //nolint:errcheck // shutdown path
	}
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // shutdown path

	healthHandler := health.New(cfg.Environment)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience, cfg.TokenTTL)
	jwtService.SetEnv(cfg.Environment)

	var userStore usersservice.Store = usersstore.NewInMemoryStore()
	if db != nil {
		userStore = usersstore.NewPostgres(db.DB())
		healthHandler.RegisterCheck("postgres", db.Health)
	}
	users := usersservice.New(userStore, jwtService, cfg.TokenTTL, usersservice.WithLogger(log))
	if err := seedAccounts(ctx, cfg, userStore, log); err != nil {
		return err
	}

	stack := buildRateLimit(rlCfg, redis, jwtService, users, reg, log)
	if redis != nil {
		healthHandler.RegisterCheck("redis", redis.Health)
	}

	log.Info("initializing gatekeeper",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"rate_limit_enabled", rlCfg.Enabled,
		"counter_store", stack.storeKind,
		"user_store", storeKind(db != nil, "postgres"),
	)

	router := newRouter(routerDeps{
		log:       log,
		reg:       reg,
		trusted:   trusted,
		health:    healthHandler,
		rateLimit: stack,
		users:     usershandler.New(users, log),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if stack.cleanup.Targets() > 0 {
		g.Go(func() error {
			return ignoreCancel(stack.cleanup.Start(gctx))
		})
	}
	if redis != nil {
		g.Go(func() error {
			return redis.RunPoolStats(gctx, 15*time.Second)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

type routerDeps struct {
	log       *slog.Logger
	reg       *prometheus.Registry
	trusted   []netip.Prefix
	health    *health.Handler
	rateLimit *rateLimitStack
	users     *usershandler.Handler
}

// newRouter applies Recovery, RequestID, client metadata, request logging and
// rate limiting in that order. Rate limiting wraps a sub-router mounted at "/"
// so unknown paths and methods are classified too; /metrics is exempt.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(d.log))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: d.trusted}).Handler)
	r.Use(request.Logger(d.log, request.NewMetrics(d.reg)))
	r.Use(request.BodyLimit(maxBodyBytes))

	r.Handle("/metrics", promhttp.HandlerFor(d.reg, promhttp.HandlerOpts{Registry: d.reg}))

	limited := chi.NewRouter()
	limited.Use(d.rateLimit.middleware.Handler)
	d.health.Register(limited)
	limited.Route("/api/v1", func(r chi.Router) {
		d.users.RegisterPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.log))
			d.users.RegisterAuthenticated(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(d.log, "admin"))
			d.users.RegisterAdmin(r)
			d.rateLimit.admin.RegisterAdmin(r)
		})
	})
	r.Mount("/", limited)
	return r
}

func seedAccounts(ctx context.Context, cfg config.Server, store seeder.UserStore, log *slog.Logger) error {
	var accounts []seeder.Account
	if b := cfg.Bootstrap; b.AdminEmail != "" && b.AdminPassword != "" {
		accounts = append(accounts, seeder.Account{
			Email: b.AdminEmail, Password: b.AdminPassword, Name: "Administrator", Role: usersmodels.RoleAdmin,
		})
	}
	if cfg.Bootstrap.SeedDemoUsers && !cfg.IsProduction() {
		accounts = append(accounts, seeder.DemoAccounts()...)
	}
	if len(accounts) == 0 {
		return nil
	}
	_, err := seeder.New(store, log, bcrypt.DefaultCost).SeedAll(ctx, accounts)
	return err
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func storeKind(external bool, name string) string {
	if external {
		return name
	}
	return "memory"
}
