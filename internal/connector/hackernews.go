package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/cybernews/internal/news"
)

// DefaultHackerNewsURL is the homepage the scraper walks.
const DefaultHackerNewsURL = "https://thehackernews.com/"

const hackerNewsSourceName = "The Hacker News"

var hackerNewsDateLayouts = []string{"Jan 2, 2006", "January 2, 2006"}

// HackerNewsConnector scrapes the The Hacker News homepage listing: one
// body-post block per article with title, story link, date, description,
// tags and image.
type HackerNewsConnector struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	logger  zerolog.Logger
}

func NewHackerNewsConnector(baseURL string, opts Options, logger zerolog.Logger) *HackerNewsConnector {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultHackerNewsURL
	}
	return &HackerNewsConnector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(opts.rateLimit()), 1),
		opts:    opts,
		logger:  logger,
	}
}

func (h *HackerNewsConnector) Name() string {
	return hackerNewsSourceName
}

func (h *HackerNewsConnector) Fetch(ctx context.Context) ([]news.Draft, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "cybernews-crawler/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", h.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %q: status %d", h.baseURL, resp.StatusCode)
	}

	drafts, err := h.parseListing(resp.Body)
	if err != nil {
		return nil, err
	}

	if h.opts.FetchContent {
		for i := range drafts {
			if drafts[i].URL == "" {
				continue
			}
			if err := h.limiter.Wait(ctx); err != nil {
				break
			}
			content, err := h.fetchArticleBody(ctx, drafts[i].URL)
			if err != nil {
				h.logger.Debug().Err(err).Str("url", drafts[i].URL).Msg("article body fetch failed")
				continue
			}
			drafts[i].Content = content
			normalizeDraft(&drafts[i])
		}
	}

	return drafts, nil
}

// parseListing extracts drafts from the homepage HTML.
func (h *HackerNewsConnector) parseListing(body io.Reader) ([]news.Draft, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse homepage: %w", err)
	}

	var drafts []news.Draft
	doc.Find("div.body-post.clear").EachWithBreak(func(_ int, post *goquery.Selection) bool {
		if len(drafts) >= h.opts.maxItems() {
			return false
		}

		draft := news.Draft{
			Title:       post.Find("h2.home-title").First().Text(),
			Description: post.Find("div.home-desc").First().Text(),
			Category:    news.CategoryTechnical,
			Source:      hackerNewsSourceName,
		}
		draft.URL, _ = post.Find("a.story-link").First().Attr("href")
		draft.Image, _ = post.Find("div.home-img img").First().Attr("src")

		if tags := strings.TrimSpace(post.Find("span.h-tags").First().Text()); tags != "" {
			for _, tag := range strings.Split(tags, "/") {
				draft.Tags = append(draft.Tags, strings.TrimSpace(tag))
			}
		}

		if raw := strings.TrimSpace(post.Find("span.h-datetime").First().Text()); raw != "" {
			if date, err := parseHackerNewsDate(raw); err == nil {
				draft.Date = date
			}
		}

		normalizeDraft(&draft)
		if err := draft.Validate(); err != nil {
			h.logger.Debug().Err(err).Msg("dropping invalid scraped post")
			return true
		}

		drafts = append(drafts, draft)
		return true
	})

	return drafts, nil
}

// fetchArticleBody pulls the article page and joins its body paragraphs,
// mirroring the listing page's div.articlebody structure.
func (h *HackerNewsConnector) fetchArticleBody(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "cybernews-crawler/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch article: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}

	var paragraphs []string
	doc.Find("div.articlebody p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("article body is empty")
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

func parseHackerNewsDate(raw string) (time.Time, error) {
	// The listing prefixes dates with an icon-font glyph; strip anything
	// that is not part of "Nov 08, 2024" before parsing.
	cleaned := strings.TrimSpace(strings.TrimFunc(raw, func(r rune) bool {
		return r > 0x7f
	}))
	for _, layout := range hackerNewsDateLayouts {
		if date, err := time.Parse(layout, cleaned); err == nil {
			return date.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
