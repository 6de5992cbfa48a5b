package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiln_dashboard/internal/apiclient"
	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/handlers"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/realtime"
	"kiln_dashboard/internal/repository"
	"kiln_dashboard/internal/repository/db"
	"kiln_dashboard/internal/server"
	"kiln_dashboard/internal/service"
	"kiln_dashboard/internal/view"

	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load configs/config.yml
	v := viper.New()
	cfg, err := config.Load(v, "configs")
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	log.SetLevel(cfg.Log.Level)
	watchConfig(v, log)

	// open DB
	sqlDB, err := openDB(cfg.DB, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	services, m, err := newServices(cfg, sqlDB, log)
	if err != nil {
		log.Fatalw("failed to wire services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, m, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// diagnostics writer
	go services.Diagnostics.Run(ctx)

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, log)
}

// newServices builds the backend clients and the view dependencies.
func newServices(cfg *config.Config, sqlDB *sql.DB, log *logger.Logger) (*service.Service, *metrics.Metrics, error) {
	caps, err := control.CapabilitiesFrom(cfg.Capabilities)
	if err != nil {
		return nil, nil, err
	}
	unit, err := format.ParseUnit(cfg.Display.PressureUnit)
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New()
	toasts := notify.NewToasts(cfg.Display.NotificationTTL, log)
	api := apiclient.New(cfg.Backend, toasts, log, m)

	services := service.NewService(repository.NewRepository(sqlDB), service.Options{
		Deps: view.Deps{
			API:          api,
			Capabilities: caps,
			Refresh:      cfg.Refresh,
			Charts:       cfg.Charts,
			Unit:         unit,
			Locale:       format.NewLocale(cfg.Display.Locale, time.Local),
			Metrics:      m,
		},
		Toasts: toasts,
		Dial: func(rec realtime.MessageRecorder) (view.Channel, error) {
			c, err := realtime.New(cfg.Realtime, log, m, rec)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Buffer:    cfg.DB.Buffer,
		Retention: cfg.DB.Retention,
		Log:       log,
	})
	return services, m, nil
}

// watchConfig applies log level changes from config.yml without a restart.
func watchConfig(v *viper.Viper, log *logger.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	config.Watch(v, func(cfg *config.Config) {
		if cfg.Log.Level != log.Level() {
			log.Infow("log_level_changed", "from", log.Level(), "to", cfg.Log.Level)
			log.SetLevel(cfg.Log.Level)
		}
	}, func(err error) {
		log.Warnw("config_reload_failed", "err", err)
	})
}

// openDB initializes the diagnostics SQLite database using configuration.
func openDB(c config.DBConfig, log *logger.Logger) (*sql.DB, error) {
	path := c.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "dashboard.db")
		path = "dashboard.db"
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// leave every screen: releases held controls and closes realtime links
	services.CloseAll()

	// stop background goroutines
	cancel()
}
