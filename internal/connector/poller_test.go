package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/dedup"
	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/similarity"
	"horse.fit/cybernews/internal/store"
)

type staticConnector struct {
	name   string
	drafts []news.Draft
	err    error
}

func (s staticConnector) Name() string { return s.name }

func (s staticConnector) Fetch(context.Context) ([]news.Draft, error) {
	return s.drafts, s.err
}

func newPollerFixture(t *testing.T, connectors ...Connector) (*Poller, *store.Store) {
	t.Helper()
	st := store.New(zerolog.Nop())
	coordinator := dedup.NewCoordinator(st, similarity.DefaultThreshold, zerolog.Nop())
	return NewPoller(connectors, coordinator, time.Minute, zerolog.Nop()), st
}

func TestRunOnceCreatesUniqueDrafts(t *testing.T) {
	t.Parallel()

	poller, st := newPollerFixture(t, staticConnector{
		name: "feed-a",
		drafts: []news.Draft{
			{Title: "First unique headline about storage", Description: "Summary one.", Source: "feed-a"},
			{Title: "Second unrelated piece on networking", Description: "Summary two.", Source: "feed-a"},
		},
	})

	summary := poller.RunOnce(context.Background())
	if summary.Fetched != 2 || summary.Created != 2 || summary.Merged != 0 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if st.Len() != 2 {
		t.Fatalf("store len = %d, want 2", st.Len())
	}
}

func TestRunOnceMergesDuplicatesIntoBestCandidate(t *testing.T) {
	t.Parallel()

	poller, st := newPollerFixture(t, staticConnector{
		name: "feed-b",
		drafts: []news.Draft{
			{Title: "Major outage hits cloud provider in Europe", Description: "Initial report.", Source: "feed-a"},
			{Title: "Major outage hits cloud provider in Europe today", Description: "Follow-up with details.", Source: "feed-b"},
		},
	})

	summary := poller.RunOnce(context.Background())
	if summary.Created != 1 || summary.Merged != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if st.Len() != 1 {
		t.Fatalf("store len = %d, want 1 merged article", st.Len())
	}

	article, _, err := st.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(article.Sources) != 2 {
		t.Fatalf("sources = %v, want union of both feeds", article.Sources)
	}
}

func TestRunOnceCountsConnectorFailures(t *testing.T) {
	t.Parallel()

	poller, st := newPollerFixture(t,
		staticConnector{name: "broken", err: errors.New("connection refused")},
		staticConnector{name: "working", drafts: []news.Draft{
			{Title: "Healthy feed item", Description: "Still ingested.", Source: "working"},
		}},
	)

	summary := poller.RunOnce(context.Background())
	if summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1", summary.Errors)
	}
	if summary.Created != 1 {
		t.Fatalf("created = %d, want 1", summary.Created)
	}
	if st.Len() != 1 {
		t.Fatalf("store len = %d, want 1", st.Len())
	}
}

func TestRunOnceSkipsInvalidDrafts(t *testing.T) {
	t.Parallel()

	poller, st := newPollerFixture(t, staticConnector{
		name: "feed-c",
		drafts: []news.Draft{
			{Title: "   ", Description: "no title"},
		},
	})

	summary := poller.RunOnce(context.Background())
	if summary.Skipped != 1 || summary.Created != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if st.Len() != 0 {
		t.Fatalf("store len = %d, want 0", st.Len())
	}
}

func TestRunOnceStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	poller, st := newPollerFixture(t, staticConnector{
		name: "feed-d",
		drafts: []news.Draft{
			{Title: "Never ingested", Description: "Context is already dead."},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := poller.RunOnce(ctx)
	if summary.Fetched != 0 {
		t.Fatalf("fetched = %d, want 0", summary.Fetched)
	}
	if st.Len() != 0 {
		t.Fatalf("store len = %d, want 0", st.Len())
	}
}
