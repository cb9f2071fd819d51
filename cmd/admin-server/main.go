package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/faciam-dev/gadmin/internal/config"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file, ignored when missing")
	dsn := flag.String("dsn", "", "database DSN (overrides DB_DSN)")
	driver := flag.String("driver", "", "database driver (overrides DB_DRIVER)")
	addr := flag.String("addr", "", "listen address (overrides ADDR)")
	entities := flag.String("entities", "", "entity definition file (overrides ENTITIES_FILE)")
	plugins := flag.String("plugins", "", "validator plugin directory (overrides PLUGIN_DIR)")
	migrate := flag.Bool("migrate", false, "apply admin table migrations before serving")
	openapi := flag.String("openapi", "", "write OpenAPI JSON and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.L.Error("load config", "err", err)
		os.Exit(1)
	}
	logger.Set(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
	override(&cfg.DSN, *dsn)
	override(&cfg.Driver, *driver)
	override(&cfg.Addr, *addr)
	override(&cfg.EntitiesFile, *entities)
	override(&cfg.PluginDir, *plugins)
	cfg.AutoMigrate = cfg.AutoMigrate || *migrate
	if err := cfg.Validate(); err != nil {
		logger.L.Error("invalid config", "err", err)
		os.Exit(1)
	}

	zl, err := newZap(cfg.LogFormat)
	if err != nil {
		logger.L.Error("zap logger", "err", err)
		os.Exit(1)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Open(ctx, cfg, zl.Sugar())
	if err != nil {
		logger.L.Error("start", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	api := server.New(app)

	if *openapi != "" {
		data, err := json.MarshalIndent(api.OpenAPI(), "", "  ")
		if err != nil {
			logger.L.Error("marshal openapi", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(filepath.Clean(*openapi), data, 0o600); err != nil {
			logger.L.Error("write openapi", "err", err)
			os.Exit(1)
		}
		return
	}

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(cfg.ReaperInterval).Do(func() {
		if n := app.Reaper.Flush(ctx); n > 0 {
			logger.L.Warn("file deletions still pending", "count", n)
		}
	}); err != nil {
		logger.L.Error("schedule reaper", "err", err)
	}
	s.StartAsync()
	defer s.Stop()

	app.StartGauges(ctx)
	app.WatchPolicies(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.Adapter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.L.Error("shutdown", "err", err)
		}
	}()

	logger.L.Info("listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("server error", "err", err)
		os.Exit(1)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newZap(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
