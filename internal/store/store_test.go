package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/news"
)

func testArticle(title string) news.Article {
	return news.Article{
		Title:       title,
		Description: "description for " + title,
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Sources:     []string{"generated"},
		Category:    news.CategoryGeneral,
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	for i := int64(1); i <= 5; i++ {
		article, err := st.Insert(testArticle("article"))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if article.ID != i {
			t.Fatalf("insert %d assigned id %d", i, article.ID)
		}
	}
	if st.MaxID() != 5 {
		t.Fatalf("MaxID = %d, want 5", st.MaxID())
	}
}

func TestInsertIgnoresSuppliedID(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	article := testArticle("forced id")
	article.ID = 999

	stored, err := st.Insert(article)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.ID != 1 {
		t.Fatalf("stored id = %d, want 1", stored.ID)
	}
}

func TestConcurrentInsertsUniqueIDs(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				article, err := st.Insert(testArticle("concurrent"))
				if err != nil {
					t.Errorf("insert: %v", err)
					return
				}
				mu.Lock()
				if _, dup := seen[article.ID]; dup {
					t.Errorf("id %d assigned twice", article.ID)
				}
				seen[article.ID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != writers*perWriter {
		t.Fatalf("got %d unique ids, want %d", len(seen), writers*perWriter)
	}
	if st.MaxID() != int64(writers*perWriter) {
		t.Fatalf("MaxID = %d, want %d", st.MaxID(), writers*perWriter)
	}
}

func TestInsertValidation(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())

	invalid := testArticle("ok")
	invalid.Sources = nil
	if _, err := st.Insert(invalid); !news.IsValidation(err) {
		t.Fatalf("insert without sources: err = %v, want validation error", err)
	}

	invalid = testArticle("ok")
	invalid.Rating = 6
	if _, err := st.Insert(invalid); !news.IsValidation(err) {
		t.Fatalf("insert with rating 6: err = %v, want validation error", err)
	}

	invalid = testArticle("ok")
	invalid.Category = news.CategoryAll
	if _, err := st.Insert(invalid); !news.IsValidation(err) {
		t.Fatalf("insert with wildcard category: err = %v, want validation error", err)
	}

	if st.Len() != 0 {
		t.Fatalf("store holds %d articles after rejected inserts", st.Len())
	}
}

func TestUpdateNotFound(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	_, err := st.Update(42, func(a *news.Article) { a.Rating = 5 })
	if !errors.Is(err, news.ErrNotFound) {
		t.Fatalf("update missing id: err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePreservesIDAndDate(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	stored, err := st.Insert(testArticle("immutable fields"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := st.Update(stored.ID, func(a *news.Article) {
		a.ID = 777
		a.Date = a.Date.AddDate(1, 0, 0)
		a.Rating = 4
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != stored.ID {
		t.Fatalf("update changed id: %d -> %d", stored.ID, updated.ID)
	}
	if !updated.Date.Equal(stored.Date) {
		t.Fatalf("update changed date: %v -> %v", stored.Date, updated.Date)
	}
	if updated.Rating != 4 {
		t.Fatalf("rating = %v, want 4", updated.Rating)
	}
}

func TestUpdateRejectsInvalidMutation(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	stored, err := st.Insert(testArticle("stays valid"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := st.Update(stored.ID, func(a *news.Article) { a.Title = "  " }); !news.IsValidation(err) {
		t.Fatalf("blank-title mutation: err = %v, want validation error", err)
	}

	current, _, err := st.Get(stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Title != "stays valid" {
		t.Fatalf("rejected mutation was committed: title = %q", current.Title)
	}
}

func TestCompareAndUpdateStaleRevision(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	stored, err := st.Insert(testArticle("contended"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, revision, err := st.Get(stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// A competing writer advances the revision first.
	if _, err := st.Update(stored.ID, func(a *news.Article) { a.Rating = 1 }); err != nil {
		t.Fatalf("competing update: %v", err)
	}

	_, err = st.CompareAndUpdate(stored.ID, revision, func(a *news.Article) { a.Rating = 2 })
	if !errors.Is(err, ErrStaleRevision) {
		t.Fatalf("stale CAS: err = %v, want ErrStaleRevision", err)
	}

	_, fresh, err := st.Get(stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := st.CompareAndUpdate(stored.ID, fresh, func(a *news.Article) { a.Rating = 2 }); err != nil {
		t.Fatalf("fresh CAS: %v", err)
	}
}

func TestListSnapshotIsolation(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	stored, err := st.Insert(testArticle("snapshot"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	snapshot := st.List()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot len = %d, want 1", len(snapshot))
	}

	if _, err := st.Update(stored.ID, func(a *news.Article) { a.Title = "mutated" }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := st.Insert(testArticle("second")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if len(snapshot) != 1 {
		t.Fatalf("snapshot grew after insert: len = %d", len(snapshot))
	}
	if snapshot[0].Title != "snapshot" {
		t.Fatalf("snapshot observed later mutation: title = %q", snapshot[0].Title)
	}
}

func TestListOrderedByID(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	for i := 0; i < 10; i++ {
		if _, err := st.Insert(testArticle("ordered")); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	listed := st.List()
	for i := 1; i < len(listed); i++ {
		if listed[i-1].ID >= listed[i].ID {
			t.Fatalf("list not ascending at index %d: %d >= %d", i, listed[i-1].ID, listed[i].ID)
		}
	}
}

type recordingSink struct {
	mu      sync.Mutex
	created []int64
	updated []int64
}

func (r *recordingSink) ArticleCreated(_ context.Context, article news.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, article.ID)
	return nil
}

func (r *recordingSink) ArticleUpdated(_ context.Context, article news.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, article.ID)
	return nil
}

type contextSink struct {
	mu  sync.Mutex
	ctx context.Context
}

func (c *contextSink) ArticleCreated(ctx context.Context, _ news.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	return nil
}

func (c *contextSink) ArticleUpdated(ctx context.Context, _ news.Article) error {
	return c.ArticleCreated(ctx, news.Article{})
}

func TestCloseCancelsSinkContext(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	sink := &contextSink{}
	st.AddSink(sink)

	if _, err := st.Insert(testArticle("bounded delivery")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sink.mu.Lock()
	ctx := sink.ctx
	sink.mu.Unlock()
	if ctx == nil {
		t.Fatal("sink never received a context")
	}

	select {
	case <-ctx.Done():
		t.Fatal("sink context canceled before Close")
	default:
	}

	st.Close()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("Close did not cancel the sink context")
	}
}

func TestSinksObserveCommits(t *testing.T) {
	t.Parallel()

	st := New(zerolog.Nop())
	sink := &recordingSink{}
	st.AddSink(sink)

	stored, err := st.Insert(testArticle("sinked"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.Update(stored.ID, func(a *news.Article) { a.Rating = 3 }); err != nil {
		t.Fatalf("update: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.created) != 1 || sink.created[0] != stored.ID {
		t.Fatalf("created notifications = %v", sink.created)
	}
	if len(sink.updated) != 1 || sink.updated[0] != stored.ID {
		t.Fatalf("updated notifications = %v", sink.updated)
	}
}
