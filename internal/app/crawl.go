package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/cybernews/internal/archive"
	"horse.fit/cybernews/internal/cli"
	"horse.fit/cybernews/internal/config"
	"horse.fit/cybernews/internal/connector"
	"horse.fit/cybernews/internal/dedup"
	"horse.fit/cybernews/internal/logging"
	"horse.fit/cybernews/internal/store"
)

// crawl runs every configured connector once against a fresh in-memory
// corpus. Useful with the archive sink enabled: the pass deduplicates within
// itself and persists the resulting articles.
func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	feedsFile := fs.String("feeds", "", "Feeds YAML file (overrides FEEDS_FILE)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall crawl timeout")

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
	if *feedsFile != "" {
		cfg.FeedsFile = *feedsFile
	}
	if !cfg.CrawlEnabled() {
		fmt.Fprintln(os.Stderr, "No feeds configured: set FEEDS_FILE or pass --feeds")
		return 2
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	st := store.New(logger)
	defer st.Close()
	coordinator := dedup.NewCoordinator(st, cfg.SimilarityThreshold, logger)

	if cfg.ArchiveDatabaseURL != "" {
		sink, err := archive.Open(cfg.ArchiveDatabaseURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("archive sink unavailable")
			fmt.Fprintf(os.Stderr, "Failed to open archive database: %v\n", err)
			return 1
		}
		st.AddSink(sink)
	}

	connectors, err := buildConnectors(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build connectors: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	poller := connector.NewPoller(connectors, coordinator, cfg.CrawlInterval, logger)
	summary := poller.RunOnce(ctx)

	fmt.Printf(
		"crawl fetched=%d created=%d merged=%d skipped=%d errors=%d corpus=%d\n",
		summary.Fetched,
		summary.Created,
		summary.Merged,
		summary.Skipped,
		summary.Errors,
		st.Len(),
	)

	if summary.Errors > 0 {
		return 1
	}
	return 0
}
