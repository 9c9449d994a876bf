package connector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/dedup"
	"horse.fit/cybernews/internal/news"
)

// Summary aggregates the outcome of one ingestion pass.
type Summary struct {
	Fetched int
	Created int
	Merged  int
	Skipped int
	Errors  int
}

// Poller drives all configured connectors on an interval and resolves their
// drafts against the merge coordinator. Connectors run unattended, so the
// "caller decision" the engine requires is a fixed policy here: merge into
// the highest-scoring candidate, never force-create.
type Poller struct {
	connectors  []Connector
	coordinator *dedup.Coordinator
	interval    time.Duration
	logger      zerolog.Logger
}

func NewPoller(connectors []Connector, coordinator *dedup.Coordinator, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Poller{
		connectors:  connectors,
		coordinator: coordinator,
		interval:    interval,
		logger:      logger,
	}
}

// Run polls immediately, then on every tick until the context is canceled.
func (p *Poller) Run(ctx context.Context) {
	p.RunOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("ingestion poller stopped")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce fetches every connector once and submits the drafts.
func (p *Poller) RunOnce(ctx context.Context) Summary {
	var summary Summary

	for _, conn := range p.connectors {
		if ctx.Err() != nil {
			return summary
		}

		drafts, err := conn.Fetch(ctx)
		if err != nil {
			summary.Errors++
			p.logger.Warn().Err(err).Str("connector", conn.Name()).Msg("connector fetch failed")
			continue
		}

		p.logger.Info().Str("connector", conn.Name()).Int("drafts", len(drafts)).Msg("connector fetch complete")
		summary.Fetched += len(drafts)

		for _, draft := range drafts {
			p.submit(draft, &summary)
		}
	}

	p.logger.Info().
		Int("fetched", summary.Fetched).
		Int("created", summary.Created).
		Int("merged", summary.Merged).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("ingestion pass complete")
	return summary
}

func (p *Poller) submit(draft news.Draft, summary *Summary) {
	article, candidates, err := p.coordinator.CreateIfUnique(draft)
	if err != nil {
		summary.Skipped++
		p.logger.Debug().Err(err).Str("title", draft.Title).Msg("draft rejected")
		return
	}

	if len(candidates) == 0 {
		summary.Created++
		p.logger.Debug().Int64("article_id", article.ID).Str("title", article.Title).Msg("draft created")
		return
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.BestScore() > best.BestScore() {
			best = candidate
		}
	}

	merged, err := p.coordinator.Merge(best.Article.ID, draft)
	if err != nil {
		summary.Errors++
		if errors.Is(err, news.ErrConflictRetry) {
			p.logger.Warn().Int64("article_id", best.Article.ID).Msg("merge kept losing races, dropping draft")
			return
		}
		p.logger.Warn().Err(err).Int64("article_id", best.Article.ID).Msg("merge failed")
		return
	}

	summary.Merged++
	p.logger.Debug().Int64("article_id", merged.ID).Float64("score", best.BestScore()).Msg("draft merged")
}
