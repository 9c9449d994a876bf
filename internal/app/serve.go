package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/cybernews/internal/archive"
	"horse.fit/cybernews/internal/cli"
	"horse.fit/cybernews/internal/config"
	"horse.fit/cybernews/internal/connector"
	"horse.fit/cybernews/internal/dedup"
	"horse.fit/cybernews/internal/httpapi"
	"horse.fit/cybernews/internal/logging"
	"horse.fit/cybernews/internal/query"
	"horse.fit/cybernews/internal/store"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Host interface to bind (overrides HTTP_HOST)")
	port := fs.Int("port", 0, "HTTP port (overrides HTTP_PORT)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	noCrawl := fs.Bool("no-crawl", false, "Disable the ingestion poller even when feeds are configured")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	serveHost := cfg.HTTPHost
	if *host != "" {
		serveHost = *host
	}
	servePort := cfg.HTTPPort
	if *port > 0 {
		servePort = *port
	}
	if servePort <= 0 || servePort > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	st := store.New(logger)
	defer st.Close()
	coordinator := dedup.NewCoordinator(st, cfg.SimilarityThreshold, logger)
	engine := query.NewEngine(st)

	if cfg.ArchiveDatabaseURL != "" {
		sink, err := archive.Open(cfg.ArchiveDatabaseURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("archive sink unavailable")
			fmt.Fprintf(os.Stderr, "Failed to open archive database: %v\n", err)
			return 1
		}
		st.AddSink(sink)
		logger.Info().Msg("archive sink enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	if cfg.CrawlEnabled() && !*noCrawl {
		connectors, err := buildConnectors(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build connectors: %v\n", err)
			return 1
		}
		poller := connector.NewPoller(connectors, coordinator, cfg.CrawlInterval, logger)
		go poller.Run(ctx)
		logger.Info().Dur("interval", cfg.CrawlInterval).Int("connectors", len(connectors)).Msg("ingestion poller started")
	}

	srv := httpapi.NewServer(st, engine, coordinator, logger, httpapi.Options{
		Host:            serveHost,
		Port:            servePort,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", serveHost).Int("port", servePort).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
