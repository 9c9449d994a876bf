// Package dedup decides, for each incoming draft, whether it duplicates
// existing corpus content, and applies the caller's resolution. Detection is
// advisory: the coordinator never merges on its own, because false positives
// under a lexical similarity measure are common and merging cannot be undone.
package dedup

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/globaltime"
	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/similarity"
	"horse.fit/cybernews/internal/store"
)

// mergeSeparator joins the existing description with merged-in draft text.
const mergeSeparator = "\n\nAdditional info: "

// maxMergeRetries bounds the read-modify-write loop before ErrConflictRetry.
const maxMergeRetries = 3

// Candidate pairs an incoming draft with an existing article whose similarity
// exceeded the threshold. It lives only for the scope of one create request.
type Candidate struct {
	Article          news.Article `json:"article"`
	TitleScore       float64      `json:"title_score"`
	DescriptionScore float64      `json:"description_score"`
}

// BestScore returns the stronger of the two field scores.
func (c Candidate) BestScore() float64 {
	if c.TitleScore > c.DescriptionScore {
		return c.TitleScore
	}
	return c.DescriptionScore
}

type Coordinator struct {
	store     *store.Store
	threshold float64
	logger    zerolog.Logger
}

func NewCoordinator(st *store.Store, threshold float64, logger zerolog.Logger) *Coordinator {
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	return &Coordinator{
		store:     st,
		threshold: threshold,
		logger:    logger,
	}
}

// Evaluate scans the current corpus snapshot and returns every article that
// duplicates the draft on title or description. Empty means no duplicate.
func (c *Coordinator) Evaluate(draft news.Draft) []Candidate {
	var candidates []Candidate
	for _, article := range c.store.List() {
		if !similarity.IsDuplicate(draft.Title, draft.Description, article.Title, article.Description, c.threshold) {
			continue
		}
		candidates = append(candidates, Candidate{
			Article:          article,
			TitleScore:       similarity.Score(draft.Title, article.Title),
			DescriptionScore: similarity.Score(draft.Description, article.Description),
		})
	}
	return candidates
}

// CreateIfUnique commits the draft when no duplicate is detected. When
// candidates exist it returns them and performs no mutation; the caller must
// then Merge or ForceCreate explicitly.
func (c *Coordinator) CreateIfUnique(draft news.Draft) (news.Article, []Candidate, error) {
	if err := draft.Validate(); err != nil {
		return news.Article{}, nil, err
	}

	if candidates := c.Evaluate(draft); len(candidates) > 0 {
		c.logger.Debug().
			Str("title", draft.Title).
			Int("candidates", len(candidates)).
			Msg("duplicate candidates detected")
		return news.Article{}, candidates, nil
	}

	article, err := c.insert(draft)
	if err != nil {
		return news.Article{}, nil, err
	}
	return article, nil, nil
}

// ForceCreate bypasses duplicate checking entirely. Used when the caller has
// seen the candidates and explicitly rejected merging.
func (c *Coordinator) ForceCreate(draft news.Draft) (news.Article, error) {
	if err := draft.Validate(); err != nil {
		return news.Article{}, err
	}
	return c.insert(draft)
}

// Merge folds the draft into the existing article: provenance and tags become
// set unions, the draft description is appended, id and date are preserved.
func (c *Coordinator) Merge(existingID int64, draft news.Draft) (news.Article, error) {
	if err := draft.Validate(); err != nil {
		return news.Article{}, err
	}

	for attempt := 0; attempt < maxMergeRetries; attempt++ {
		_, revision, err := c.store.Get(existingID)
		if err != nil {
			return news.Article{}, err
		}

		merged, err := c.store.CompareAndUpdate(existingID, revision, func(article *news.Article) {
			article.Sources = append(article.Sources, draft.Provenance())
			article.Description = article.Description + mergeSeparator + draft.Description
			article.Tags = append(article.Tags, draft.Tags...)
		})
		if errors.Is(err, store.ErrStaleRevision) {
			c.logger.Debug().Int64("article_id", existingID).Int("attempt", attempt+1).Msg("merge raced a concurrent update, retrying")
			continue
		}
		if err != nil {
			return news.Article{}, err
		}

		c.logger.Info().
			Int64("article_id", merged.ID).
			Str("provenance", draft.Provenance()).
			Int("sources", len(merged.Sources)).
			Msg("merged duplicate draft into existing article")
		return merged, nil
	}

	return news.Article{}, fmt.Errorf("merge article %d after %d attempts: %w", existingID, maxMergeRetries, news.ErrConflictRetry)
}

func (c *Coordinator) insert(draft news.Draft) (news.Article, error) {
	date := draft.Date
	if date.IsZero() {
		date = globaltime.Today()
	}
	category := draft.Category
	if category == "" {
		category = news.CategoryGeneral
	}

	article, err := c.store.Insert(news.Article{
		Title:       draft.Title,
		Description: draft.Description,
		Content:     draft.Content,
		Date:        date,
		Sources:     []string{draft.Provenance()},
		Category:    category,
		Tags:        draft.Tags,
		Rating:      0,
		Comments:    []news.Comment{},
		URL:         draft.URL,
		Image:       draft.Image,
		Language:    draft.Language,
	})
	if err != nil {
		return news.Article{}, err
	}

	c.logger.Info().
		Int64("article_id", article.ID).
		Str("category", string(article.Category)).
		Str("provenance", draft.Provenance()).
		Msg("article created")
	return article, nil
}
