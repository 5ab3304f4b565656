// Command webserv runs the HTTP/1.1 virtual-host server configured by a
// single declarative config file (TOML or YAML; see LoadConfigFile).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	webserv "github.com/willtrigo/webserv-go"
)

func main() {
	var (
		configPath    = flag.String("config", "webserv.toml", "path to the server configuration file")
		shutdownGrace = flag.Duration("shutdown-grace", 10*time.Second, "how long to wait for in-flight connections during shutdown")
	)
	flag.Parse()

	if err := run(*configPath, *shutdownGrace); err != nil {
		fmt.Fprintln(os.Stderr, "webserv:", err)
		os.Exit(1)
	}
}

func run(configPath string, shutdownGrace time.Duration) error {
	config, err := webserv.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if errs := config.ValidateAll(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "webserv: config error:", e)
		}
		return fmt.Errorf("%d configuration error(s)", len(errs))
	}

	if config.MimeTypesPath != "" {
		table, err := webserv.LoadMimeTypesFile(config.MimeTypesPath)
		if err != nil {
			return fmt.Errorf("loading mime.types: %w", err)
		}
		config.MimeTypes = table
	}

	logger := webserv.NewLogger()
	if config.ErrorLogPath != "" {
		f, err := os.OpenFile(config.ErrorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening error log: %w", err)
		}
		defer f.Close()
		logger.Output = f
	}

	engine := webserv.NewEngine(config, logger, nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Serve() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return engine.Shutdown(ctx)
}
