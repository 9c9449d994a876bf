package app

import (
	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/config"
	"horse.fit/cybernews/internal/connector"
)

func buildConnectors(cfg *config.Config, logger zerolog.Logger) ([]connector.Connector, error) {
	sources, err := connector.LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return nil, err
	}

	opts := connector.Options{
		RateLimit:    cfg.CrawlRateLimit,
		FetchContent: cfg.CrawlFetchContent,
	}
	return connector.Build(sources, opts, logger), nil
}
