// Command server is the entry point for the dust server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustbooks/dust-server/internal/config"
	"github.com/dustbooks/dust-server/internal/di"
	"github.com/dustbooks/dust-server/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewForEnvironment(cfg.Environment, logger.ParseLevel(cfg.LogLevel))

	log.Info("starting dust server",
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"library_dirs", cfg.LibraryDirectories,
		"port", cfg.Port,
	)

	injector := di.NewInjector()
	if err := di.Bootstrap(injector); err != nil {
		log.Error("failed to bootstrap services", "error", err)
		os.Exit(1)
	}

	log.Info("server running", "port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")

	// do.RootScope.Shutdown invokes every registered Shutdownable in
	// reverse dependency order: HTTP server, scheduler, then store.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
