// Package connector implements the inbound side of the engine: source
// connectors that fetch raw items, normalize them into drafts, and feed the
// merge coordinator. Network politeness (rate limiting, timeouts) lives
// here, never inside the engine.
package connector

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"horse.fit/cybernews/internal/langdetect"
	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/reader"
)

// maxContentChars caps extracted article bodies before they reach the store.
const maxContentChars = 20000

// Connector fetches already-normalized drafts from one external source.
type Connector interface {
	Name() string
	Fetch(ctx context.Context) ([]news.Draft, error)
}

// Options is shared connector tuning.
type Options struct {
	// RateLimit is the sustained request rate per connector, in requests
	// per second.
	RateLimit float64
	// FetchContent enables full-text extraction for each item's URL.
	FetchContent bool
	// MaxItems bounds how many items one fetch pass may yield.
	MaxItems int
}

func (o Options) maxItems() int {
	if o.MaxItems <= 0 {
		return 20
	}
	return o.MaxItems
}

func (o Options) rateLimit() float64 {
	if o.RateLimit <= 0 {
		return 1
	}
	return o.RateLimit
}

// normalizeDraft cleans up whitespace, strips markup leftovers, dedupes tags
// and tags the language when the source did not provide one.
func normalizeDraft(draft *news.Draft) {
	draft.Title = reader.CleanText(stripHTML(draft.Title))
	draft.Description = reader.CleanText(stripHTML(draft.Description))
	draft.Tags = news.DedupeStrings(draft.Tags)

	if draft.Content != "" {
		content, _ := reader.TruncateText(reader.CleanText(draft.Content), maxContentChars)
		draft.Content = content
	}

	if draft.Language == "" {
		draft.Language = langdetect.DetectISO6391(draft.Title + " " + draft.Description)
	}
}

// stripHTML drops markup from feed-provided snippets. Plain text passes
// through unchanged.
func stripHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return doc.Text()
}
