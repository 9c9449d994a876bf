// Package archive is a reference implementation of the store's durability
// hook: committed articles are upserted into Postgres for retention and
// offline analysis. The engine never reads the archive back; dropping the
// table loses history, not serving state.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"horse.fit/cybernews/internal/news"
)

// ArchivedArticle is the archive row shape. Set-valued fields are stored as
// JSON text so the table stays portable across Postgres versions.
type ArchivedArticle struct {
	ID          int64  `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	Content     string
	Date        time.Time
	Category    string `gorm:"index"`
	Sources     string
	Tags        string
	Rating      float64
	Comments    string
	URL         string
	Image       string
	Language    string
	ArchivedAt  time.Time `gorm:"autoUpdateTime"`
}

func (ArchivedArticle) TableName() string {
	return "articles"
}

// Sink implements store.Sink on top of gorm.
type Sink struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to Postgres and migrates the archive table.
func Open(databaseURL string, logger zerolog.Logger) (*Sink, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	if err := db.AutoMigrate(&ArchivedArticle{}); err != nil {
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}

	return &Sink{db: db, logger: logger}, nil
}

func (s *Sink) ArticleCreated(ctx context.Context, article news.Article) error {
	return s.upsert(ctx, article)
}

func (s *Sink) ArticleUpdated(ctx context.Context, article news.Article) error {
	return s.upsert(ctx, article)
}

func (s *Sink) upsert(ctx context.Context, article news.Article) error {
	row, err := toRow(article)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("archive article %d: %w", article.ID, result.Error)
	}
	return nil
}

func toRow(article news.Article) (ArchivedArticle, error) {
	sources, err := json.Marshal(article.Sources)
	if err != nil {
		return ArchivedArticle{}, fmt.Errorf("encode sources: %w", err)
	}
	tags, err := json.Marshal(article.Tags)
	if err != nil {
		return ArchivedArticle{}, fmt.Errorf("encode tags: %w", err)
	}
	comments, err := json.Marshal(article.Comments)
	if err != nil {
		return ArchivedArticle{}, fmt.Errorf("encode comments: %w", err)
	}

	return ArchivedArticle{
		ID:          article.ID,
		Title:       article.Title,
		Description: article.Description,
		Content:     article.Content,
		Date:        article.Date,
		Category:    string(article.Category),
		Sources:     string(sources),
		Tags:        string(tags),
		Rating:      article.Rating,
		Comments:    string(comments),
		URL:         article.URL,
		Image:       article.Image,
		Language:    article.Language,
	}, nil
}
