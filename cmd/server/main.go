package main

import (
	"context"
	"errors"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/inmem"
	"github.com/buzkaaclicker/appsrv/persistent"
	"github.com/buzkaaclicker/appsrv/transport/rest"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"golang.org/x/sync/errgroup"
)

func newServer(scopes appsrv.ScopeFactory, cfg config) *fiber.App {
	metrics := rest.NewMetrics()
	userController := rest.UserController{Scopes: scopes}
	realmController := rest.RealmController{Scopes: scopes}

	server := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          rest.ErrorHandler,
	})
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})
	api.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowOrigins}))
	api.Use(metrics.Handler())

	api.Get("/status", monitor.New())
	metrics.InstallTo(api)
	userController.InstallTo(api)
	realmController.InstallTo(api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)
	return server
}

func setupLogger(verbose bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "appsrv")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

// openStore opens the configured backing store. The returned func closes it.
func openStore(ctx context.Context, cfg config) (appsrv.ScopeFactory, func() error, error) {
	if cfg.Store == storeBunt {
		db, err := inmem.Open(cfg.BuntPath)
		if err != nil {
			return nil, nil, err
		}
		return buntScopes(db), db.Close, nil
	}

	db, err := persistent.PgOpen(ctx, cfg.PostgresDsn, cfg.DbVerbose)
	if err != nil {
		return nil, nil, err
	}
	if cfg.CreateSchema {
		if err := persistent.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return pgScopes(db), db.Close, nil
}

func run(ctx context.Context, cfg config) error {
	logrus.WithField("store", cfg.Store).Infoln("Opening database.")
	scopes, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logrus.WithError(err).Warningln("Could not close database.")
		}
	}()

	if cfg.Seed {
		if err := seed(ctx, scopes()); err != nil {
			return err
		}
	}

	server := newServer(scopes, cfg)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", cfg.ListenAddr).Infoln("Starting listening... To shut down use ^C")
		return server.Listen(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Infoln("Shutting down...")
		return server.ShutdownWithTimeout(10 * time.Second)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatalln("Invalid configuration.")
	}
	setupLogger(cfg.Debug, cfg.Syslog)
	logrus.Infoln("Starting appsrv.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Fatalln("Server failed.")
	}
	logrus.Exit(0)
}
