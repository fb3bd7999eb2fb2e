package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
)

func main() {
	c := dig_container.New(core.NewConfig)

	must(c.Invoke(func(
		conf *core.Config,
		logger *logsvc.RollbarLogger,
		db *gorm.DB,
		opts *echoapi.Options,
	) {
		// =========================================================================
		// Initialize App

		logger.Info("application initializing", map[string]interface{}{"build": conf.App.Build, "env": conf.App.Env})

		defer func() {
			if err := database.Close(db); err != nil {
				logger.Error("closing database", err)
			}
			logger.Info("application stopped")
			_ = logger.Sync()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		opts.SignalShutdown = func() { shutdown <- syscall.SIGTERM }
		server := echoapi.NewServer(opts)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.App.Build)
		expvar.NewString("env").Set(conf.App.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
				logger.Error("debug server closed", err)
			}
		}()

		// =========================================================================
		// Start API Service

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("API listening", map[string]interface{}{"address": conf.Server.Address})
			serverErrors <- server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			if err != http.ErrServerClosed {
				logger.Error("server error", err)
			}

		case sig := <-shutdown:
			logger.Info("start shutdown", map[string]interface{}{"signal": sig.String()})

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Stop(ctx); err != nil {
				logger.Error("could not stop server gracefully", err)
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
