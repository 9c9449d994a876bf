package connector

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/reader"
)

// FeedSource is one entry from the feeds file. Type selects the connector:
// "rss" (default) parses the URL as a feed, "hackernews" scrapes the
// The Hacker News homepage listing.
type FeedSource struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Type     string        `yaml:"type"`
	Category news.Category `yaml:"category"`
}

type feedsFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// LoadFeeds reads the YAML feeds file and validates each entry.
func LoadFeeds(path string) ([]FeedSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file %q: %w", path, err)
	}

	var parsed feedsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse feeds file %q: %w", path, err)
	}
	if len(parsed.Feeds) == 0 {
		return nil, fmt.Errorf("feeds file %q lists no feeds", path)
	}

	for i := range parsed.Feeds {
		feed := &parsed.Feeds[i]
		feed.Name = strings.TrimSpace(feed.Name)
		feed.URL = strings.TrimSpace(feed.URL)
		feed.Type = strings.TrimSpace(strings.ToLower(feed.Type))
		switch feed.Type {
		case "":
			feed.Type = TypeRSS
		case TypeRSS, TypeHackerNews:
		default:
			return nil, fmt.Errorf("feeds file %q: feed %d has unknown type %q", path, i, feed.Type)
		}
		if feed.URL == "" && feed.Type != TypeHackerNews {
			return nil, fmt.Errorf("feeds file %q: feed %d has no url", path, i)
		}
		if feed.Name == "" {
			feed.Name = feed.URL
		}
		if feed.Category == "" {
			feed.Category = news.CategoryGeneral
		}
		if !feed.Category.Storable() {
			return nil, fmt.Errorf("feeds file %q: feed %q has unknown category %q", path, feed.Name, feed.Category)
		}
	}

	return parsed.Feeds, nil
}

const (
	TypeRSS        = "rss"
	TypeHackerNews = "hackernews"
)

// Build constructs connectors for every source in the feeds file.
func Build(sources []FeedSource, opts Options, logger zerolog.Logger) []Connector {
	connectors := make([]Connector, 0, len(sources))
	for _, source := range sources {
		switch source.Type {
		case TypeHackerNews:
			connectors = append(connectors, NewHackerNewsConnector(source.URL, opts, logger))
		default:
			connectors = append(connectors, NewFeedConnector(source, opts, logger))
		}
	}
	return connectors
}

// FeedConnector pulls one RSS/Atom feed.
type FeedConnector struct {
	source  FeedSource
	parser  *gofeed.Parser
	limiter *rate.Limiter
	opts    Options
	logger  zerolog.Logger
}

func NewFeedConnector(source FeedSource, opts Options, logger zerolog.Logger) *FeedConnector {
	return &FeedConnector{
		source:  source,
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(rate.Limit(opts.rateLimit()), 1),
		opts:    opts,
		logger:  logger,
	}
}

func (f *FeedConnector) Name() string {
	return f.source.Name
}

func (f *FeedConnector) Fetch(ctx context.Context) ([]news.Draft, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseURLWithContext(f.source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", f.source.URL, err)
	}

	drafts := make([]news.Draft, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(drafts) >= f.opts.maxItems() {
			break
		}

		draft := f.itemToDraft(ctx, item)
		if draft == nil {
			continue
		}
		drafts = append(drafts, *draft)
	}

	return drafts, nil
}

func (f *FeedConnector) itemToDraft(ctx context.Context, item *gofeed.Item) *news.Draft {
	if item == nil || strings.TrimSpace(item.Title) == "" {
		return nil
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}
	if strings.TrimSpace(stripHTML(description)) == "" {
		return nil
	}

	draft := news.Draft{
		Title:       item.Title,
		Description: description,
		Category:    f.source.Category,
		Tags:        item.Categories,
		URL:         item.Link,
		Source:      f.source.Name,
	}
	if item.PublishedParsed != nil {
		draft.Date = item.PublishedParsed.UTC()
	}
	if item.Image != nil {
		draft.Image = item.Image.URL
	}

	if f.opts.FetchContent && draft.URL != "" {
		if err := f.limiter.Wait(ctx); err == nil {
			content, err := reader.FetchText(ctx, draft.URL)
			if err != nil {
				f.logger.Debug().Err(err).Str("url", draft.URL).Msg("content extraction failed")
			} else {
				draft.Content = content
			}
		}
	}

	normalizeDraft(&draft)
	if err := draft.Validate(); err != nil {
		f.logger.Debug().Err(err).Str("feed", f.source.Name).Msg("dropping invalid feed item")
		return nil
	}
	return &draft
}
