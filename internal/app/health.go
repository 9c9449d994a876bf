package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/cybernews/internal/archive"
	"horse.fit/cybernews/internal/cli"
	"horse.fit/cybernews/internal/config"
	"horse.fit/cybernews/internal/connector"
	"horse.fit/cybernews/internal/logging"
)

// health verifies that the configuration loads, the feeds file parses, and
// the archive database (when configured) accepts connections.
func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

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
		fmt.Fprintf(os.Stderr, "Config check failed: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger check failed: %v\n", err)
		return 1
	}

	feeds := 0
	if cfg.CrawlEnabled() {
		sources, err := connector.LoadFeeds(cfg.FeedsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Feeds check failed: %v\n", err)
			return 1
		}
		feeds = len(sources)
	}

	archiveStatus := "disabled"
	if cfg.ArchiveDatabaseURL != "" {
		if _, err := archive.Open(cfg.ArchiveDatabaseURL, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Archive check failed: %v\n", err)
			return 1
		}
		archiveStatus = "ok"
	}

	fmt.Printf(
		"health ok environment=%s threshold=%.2f feeds=%d archive=%s\n",
		cfg.Environment,
		cfg.SimilarityThreshold,
		feeds,
		archiveStatus,
	)
	return 0
}
