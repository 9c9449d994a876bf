package news

import (
	"fmt"
	"strings"
	"time"
)

const (
	RatingMin = 0.0
	RatingMax = 5.0

	// DefaultProvenance labels articles submitted without an explicit source.
	DefaultProvenance = "generated"
)

// Category is the closed set of corpus categories. CategoryAll is a query
// wildcard and is never stored on an article.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryFinance   Category = "finance"
	CategoryTechnical Category = "technical"
	CategoryAll       Category = "all"
)

var storableCategories = map[Category]struct{}{
	CategoryGeneral:   {},
	CategoryFinance:   {},
	CategoryTechnical: {},
}

// ParseCategory normalizes a raw category label. Empty input maps to
// CategoryAll so callers can treat the zero value as "no restriction".
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return CategoryAll, nil
	}

	category := Category(trimmed)
	if category == CategoryAll {
		return CategoryAll, nil
	}
	if _, ok := storableCategories[category]; !ok {
		return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", raw)}
	}
	return category, nil
}

// Storable reports whether the category may be assigned to an article.
func (c Category) Storable() bool {
	_, ok := storableCategories[c]
	return ok
}

// Comment is a stored discussion entry. The engine stores comments verbatim
// and never interprets them.
type Comment struct {
	ID      int64     `json:"id"`
	User    string    `json:"user"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// Article is the unit of the corpus.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Date        time.Time `json:"date"`
	Sources     []string  `json:"sources"`
	Category    Category  `json:"category"`
	Tags        []string  `json:"tags"`
	Rating      float64   `json:"rating"`
	Comments    []Comment `json:"comments"`
	URL         string    `json:"url,omitempty"`
	Image       string    `json:"image,omitempty"`
	Language    string    `json:"language,omitempty"`
}

// Clone returns a deep copy so snapshots stay isolated from later mutation.
func (a Article) Clone() Article {
	out := a
	if a.Sources != nil {
		out.Sources = append([]string(nil), a.Sources...)
	}
	if a.Tags != nil {
		out.Tags = append([]string(nil), a.Tags...)
	}
	if a.Comments != nil {
		out.Comments = append([]Comment(nil), a.Comments...)
	}
	return out
}

// Draft is a normalized, not-yet-stored candidate article submitted for
// ingestion by a source connector or the HTTP API.
type Draft struct {
	Title       string
	Description string
	Content     string
	Date        time.Time
	Category    Category
	Tags        []string
	Image       string
	URL         string
	Source      string
	Language    string
}

// Provenance returns the source label recorded when the draft is committed
// or merged into the corpus.
func (d Draft) Provenance() string {
	if source := strings.TrimSpace(d.Source); source != "" {
		return source
	}
	return DefaultProvenance
}

// Validate rejects drafts that must never reach the store.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be blank"}
	}
	if d.Category != "" && !d.Category.Storable() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", d.Category)}
	}
	return nil
}

// DedupeStrings removes exact duplicates while preserving first-seen order.
// Matching is case-sensitive; blank entries are dropped.
func DedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
