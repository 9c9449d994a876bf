// Package query answers read-only, paged views over the corpus for the
// presentation layer. It never mutates the store and may run concurrently
// with ingestion.
package query

import (
	"fmt"
	"sort"
	"strings"

	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/store"
)

type Sort string

const (
	// SortHot orders by provenance breadth: articles reported by more
	// independent sources rank first.
	SortHot Sort = "hot"
	SortNew Sort = "new"
	SortTop Sort = "top"
)

// ParseSort normalizes a raw sort key. Empty input maps to SortHot.
func ParseSort(raw string) (Sort, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	switch Sort(trimmed) {
	case "":
		return SortHot, nil
	case SortHot, SortNew, SortTop:
		return Sort(trimmed), nil
	default:
		return "", &news.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort key %q", raw)}
	}
}

const DefaultPageSize = 10

type Params struct {
	Category news.Category
	Search   string
	Sort     Sort
	Page     int
	PageSize int
}

type Result struct {
	Articles []news.Article `json:"articles"`
	Total    int            `json:"total"`
	Pages    int            `json:"pages"`
}

type Engine struct {
	store *store.Store
}

func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Query filters, sorts and paginates a snapshot of the corpus. Total counts
// the articles surviving the filter before slicing; Pages is at least 1 even
// for an empty result, and an out-of-range page yields an empty slice.
func (e *Engine) Query(params Params) Result {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	sortKey := params.Sort
	if sortKey == "" {
		sortKey = SortHot
	}

	filtered := filter(e.store.List(), params.Category, params.Search)
	sortArticles(filtered, sortKey)

	total := len(filtered)
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}

	start := (page - 1) * pageSize
	if start >= total {
		return Result{Articles: []news.Article{}, Total: total, Pages: pages}
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Result{Articles: filtered[start:end], Total: total, Pages: pages}
}

// Get returns the single article for the detail view, content included.
func (e *Engine) Get(id int64) (news.Article, error) {
	article, _, err := e.store.Get(id)
	return article, err
}

func filter(articles []news.Article, category news.Category, search string) []news.Article {
	needle := strings.ToLower(strings.TrimSpace(search))
	wildcard := category == "" || category == news.CategoryAll

	out := make([]news.Article, 0, len(articles))
	for _, article := range articles {
		if !wildcard && article.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(article.Title), needle) &&
			!strings.Contains(strings.ToLower(article.Description), needle) {
			continue
		}
		out = append(out, article)
	}
	return out
}

// sortArticles orders in place. Ties break by ascending id so repeated
// queries over an unchanged corpus return identical pages.
func sortArticles(articles []news.Article, key Sort) {
	sort.Slice(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		switch key {
		case SortNew:
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
		case SortTop:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		default: // SortHot
			if len(a.Sources) != len(b.Sources) {
				return len(a.Sources) > len(b.Sources)
			}
		}
		return a.ID < b.ID
	})
}
