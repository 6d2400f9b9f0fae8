package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/config"
	"github.com/MrEthical07/goGuard/internal/httpapi"
	"github.com/MrEthical07/goGuard/internal/userstore"
	promexport "github.com/MrEthical07/goGuard/metrics/export/prometheus"
	"github.com/MrEthical07/goGuard/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// defaultRoles seeds the in-memory role store. Admin is implicit.
var defaultRoles = map[string][]string{
	permission.RoleGuest:  {"profile.read"},
	permission.RoleViewer: {"profile.read", "posts.read"},
	permission.RoleEditor: {"profile.read", "posts.read", "posts.write"},
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting goguard-server", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	rdb, stopRedis, err := openRedis(cfg.Redis, log)
	if err != nil {
		log.Error("redis_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer stopRedis()

	builder := goGuard.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithLogger(log)

	if cfg.Security.Audit {
		builder = builder.WithAuditSink(goGuard.NewSlogSink(log.With("component", "audit")))
	}

	if cfg.DB.URL != "" {
		db, err := openDB(rootCtx, cfg.DB.URL)
		if err != nil {
			log.Error("db_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		users, err := userstore.NewPostgres(db)
		if err != nil {
			log.Error("userstore_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		roles, err := permission.NewSQLStore(db)
		if err != nil {
			log.Error("rolestore_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		builder = builder.WithUserProvider(users).WithRoleStore(roles)
		log.Info("db_connected")
	} else {
		log.Warn("no database configured; users and roles are kept in memory")
		builder = builder.WithUserProvider(userstore.NewMemory()).WithRoles(defaultRoles)
	}

	engine, err := builder.Build()
	if err != nil {
		log.Error("engine_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info("security_posture",
		slog.Bool("production", report.ProductionMode),
		slog.Bool("csrf", report.CSRFProtection),
		slog.Any("fail_open", report.FailOpenComponents),
	)

	handler := httpapi.NewRouter(engine, httpapi.Options{
		Logger:            log,
		Timeout:           cfg.Timeouts.Request,
		Metrics:           promexport.Handler(engine),
		ExposeResetTokens: cfg.Auth.ExposeResetTokens && cfg.Env != envProd,
	})

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}
	log.Info("service_stopped")
}

// openRedis connects to cfg.Addr, or starts an embedded miniredis when no
// address is configured.
func openRedis(cfg config.RedisConfig, log *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Addr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		log.Warn("no redis configured; using embedded miniredis", slog.String("addr", addr))
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	stop := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	return client, stop, nil
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal:
		fallthrough
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
