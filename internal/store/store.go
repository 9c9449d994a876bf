// Package store owns the canonical in-memory article collection. Every
// mutation of the corpus passes through it so that id assignment stays
// monotonic and merges never lose concurrent updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/news"
)

// ErrStaleRevision signals that a CompareAndUpdate lost a race against
// another mutation of the same article. Callers retry with a fresh read.
var ErrStaleRevision = errors.New("stale article revision")

// Sink receives committed articles after each successful mutation. Sinks are
// the store's durability hook; the store itself never reads them back.
type Sink interface {
	ArticleCreated(ctx context.Context, article news.Article) error
	ArticleUpdated(ctx context.Context, article news.Article) error
}

type entry struct {
	article  news.Article
	revision int64
}

// Store is safe for concurrent use. Writers are serialized by the mutex;
// readers share the lock and only ever observe deep-copied snapshots.
type Store struct {
	mu          sync.RWMutex
	entries     map[int64]*entry
	maxAssigned int64

	sinkMu     sync.Mutex
	sinks      []Sink
	sinkCtx    context.Context
	sinkCancel context.CancelFunc

	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries:    make(map[int64]*entry),
		sinkCtx:    ctx,
		sinkCancel: cancel,
		logger:     logger,
	}
}

// Close cancels the context handed to sinks so in-flight deliveries (archive
// upserts included) unblock during shutdown. The in-memory collection itself
// stays usable; later mutations commit but their sinks see a canceled context.
func (s *Store) Close() {
	s.sinkCancel()
}

// AddSink registers a durability hook. Sinks are invoked outside the store
// lock, so a slow sink delays only its own goroutine's call, never readers.
// Each delivery carries the store's lifecycle context; Close cancels it.
func (s *Store) AddSink(sink Sink) {
	if sink == nil {
		return
	}
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Insert commits a new article. The supplied ID is ignored: the store assigns
// 1 + the highest id it has ever handed out, so ids stay unique and are never
// reused even if an article were removed externally.
func (s *Store) Insert(article news.Article) (news.Article, error) {
	candidate := article.Clone()
	candidate.Sources = news.DedupeStrings(candidate.Sources)
	candidate.Tags = news.DedupeStrings(candidate.Tags)
	if candidate.Comments == nil {
		candidate.Comments = []news.Comment{}
	}

	if err := validateArticle(candidate); err != nil {
		return news.Article{}, err
	}

	s.mu.Lock()
	s.maxAssigned++
	candidate.ID = s.maxAssigned
	s.entries[candidate.ID] = &entry{article: candidate, revision: 1}
	stored := candidate.Clone()
	s.mu.Unlock()

	s.notify(stored, false)
	return stored, nil
}

// Update applies an in-place transformation to the article with the given id.
// The mutator runs under the write lock against a private copy; nothing is
// committed when validation fails afterwards.
func (s *Store) Update(id int64, mutate func(*news.Article)) (news.Article, error) {
	s.mu.Lock()
	ent, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return news.Article{}, fmt.Errorf("update article %d: %w", id, news.ErrNotFound)
	}

	updated, err := applyMutation(ent, id, mutate)
	if err != nil {
		s.mu.Unlock()
		return news.Article{}, err
	}
	stored := updated.Clone()
	s.mu.Unlock()

	s.notify(stored, true)
	return stored, nil
}

// Get returns a copy of the article along with its current revision for use
// with CompareAndUpdate.
func (s *Store) Get(id int64) (news.Article, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entries[id]
	if !ok {
		return news.Article{}, 0, fmt.Errorf("get article %d: %w", id, news.ErrNotFound)
	}
	return ent.article.Clone(), ent.revision, nil
}

// CompareAndUpdate applies the mutation only if the article is still at the
// given revision, returning ErrStaleRevision otherwise.
func (s *Store) CompareAndUpdate(id, revision int64, mutate func(*news.Article)) (news.Article, error) {
	s.mu.Lock()
	ent, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return news.Article{}, fmt.Errorf("update article %d: %w", id, news.ErrNotFound)
	}
	if ent.revision != revision {
		s.mu.Unlock()
		return news.Article{}, fmt.Errorf("update article %d at revision %d: %w", id, revision, ErrStaleRevision)
	}

	updated, err := applyMutation(ent, id, mutate)
	if err != nil {
		s.mu.Unlock()
		return news.Article{}, err
	}
	stored := updated.Clone()
	s.mu.Unlock()

	s.notify(stored, true)
	return stored, nil
}

// List returns a point-in-time snapshot ordered by ascending id. The slice
// and its articles are copies; callers may hold them while mutation proceeds.
func (s *Store) List() []news.Article {
	s.mu.RLock()
	articles := make([]news.Article, 0, len(s.entries))
	for _, ent := range s.entries {
		articles = append(articles, ent.article.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })
	return articles
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MaxID returns the highest id the store has ever assigned.
func (s *Store) MaxID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxAssigned
}

func applyMutation(ent *entry, id int64, mutate func(*news.Article)) (news.Article, error) {
	updated := ent.article.Clone()
	mutate(&updated)

	// id and creation date survive every mutation
	updated.ID = id
	updated.Date = ent.article.Date

	updated.Sources = news.DedupeStrings(updated.Sources)
	updated.Tags = news.DedupeStrings(updated.Tags)
	if updated.Comments == nil {
		updated.Comments = []news.Comment{}
	}

	if err := validateArticle(updated); err != nil {
		return news.Article{}, err
	}

	ent.article = updated
	ent.revision++
	return updated, nil
}

func validateArticle(article news.Article) error {
	if err := (news.Draft{
		Title:       article.Title,
		Description: article.Description,
	}).Validate(); err != nil {
		return err
	}
	if len(article.Sources) == 0 {
		return &news.ValidationError{Field: "sources", Reason: "must not be empty"}
	}
	if !article.Category.Storable() {
		return &news.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", article.Category)}
	}
	if article.Rating < news.RatingMin || article.Rating > news.RatingMax {
		return &news.ValidationError{
			Field:  "rating",
			Reason: fmt.Sprintf("must be between %.0f and %.0f", news.RatingMin, news.RatingMax),
		}
	}
	return nil
}

func (s *Store) notify(article news.Article, updated bool) {
	s.sinkMu.Lock()
	sinks := append([]Sink(nil), s.sinks...)
	s.sinkMu.Unlock()

	for _, sink := range sinks {
		var err error
		if updated {
			err = sink.ArticleUpdated(s.sinkCtx, article)
		} else {
			err = sink.ArticleCreated(s.sinkCtx, article)
		}
		if err != nil {
			s.logger.Warn().Err(err).Int64("article_id", article.ID).Msg("article sink failed")
		}
	}
}
