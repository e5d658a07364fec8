package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erazemk/trgovina/internal/api"
	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/config"
	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/logging"
	"github.com/erazemk/trgovina/internal/scheduler"
	"github.com/erazemk/trgovina/internal/store"
)

func cmdServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	load := commonFlags(fs)
	fs.StringP("addr", "a", "", "listen address (default :8080)")
	fs.StringP("user", "u", "", "platform admin username on first run (default admin)")
	fs.Bool("no-scheduler", false, "do not run the background jobs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := load(
		config.FlagKey{Flag: "addr", Key: "server.addr"},
		config.FlagKey{Flag: "user", Key: "server.admin_user"},
	)
	if err != nil {
		return err
	}
	if noSched, _ := fs.GetBool("no-scheduler"); noSched {
		cfg.Scheduler.Enabled = false
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg.Server.DB)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return err
	}
	defer database.Close()
	log.Info("database ready", zap.String("path", cfg.Server.DB))

	ctx := context.Background()
	password, err := ensurePlatformAdmin(ctx, database, cfg.Server.AdminUser)
	if err != nil {
		log.Error("failed to create platform admin", zap.Error(err))
		return err
	}
	if password != "" {
		printAdmin(cfg.Server.AdminUser, password)
	}

	secret := cfg.JWT.Secret
	if secret == "" {
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			log.Error("failed to get JWT secret", zap.Error(err))
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := api.NewRouter(database, api.Config{
		Issuer:     auth.NewIssuer(secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Logger:     log.Named("api"),
		LoginRate:  rate.Limit(cfg.Auth.LoginRate),
		LoginBurst: cfg.Auth.LoginBurst,
		Registry:   reg,
	})

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(database, cfg.Scheduler.StockSpec, log.Named("scheduler"))
		if err := sched.Start(); err != nil {
			log.Error("failed to start scheduler", zap.Error(err))
			return err
		}
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-quit
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", cfg.Server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", zap.Error(err))
		return err
	}
	<-done

	log.Info("server stopped, closing database")
	return nil
}

// openDatabase opens the SQLite file and brings its schema up to date.
func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}
