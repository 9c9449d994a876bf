package draftschema

import (
	"encoding/json"
	"testing"
	"time"

	"horse.fit/cybernews/internal/news"
)

func TestValidateArticleDraftAccepted(t *testing.T) {
	t.Parallel()

	payload, err := ValidateArticleDraft(json.RawMessage(`{
		"title": "Supply chain attack discovered",
		"description": "A popular package registry served a tampered release.",
		"category": "technical",
		"tags": ["supply-chain", "npm"],
		"source": "feed-a",
		"language": "en",
		"date": "2025-06-03"
	}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	draft, err := payload.ToDraft()
	if err != nil {
		t.Fatalf("to draft: %v", err)
	}
	if draft.Category != news.CategoryTechnical {
		t.Fatalf("category = %q, want technical", draft.Category)
	}
	if draft.Source != "feed-a" {
		t.Fatalf("source = %q", draft.Source)
	}
	want := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	if !draft.Date.Equal(want) {
		t.Fatalf("date = %v, want %v", draft.Date, want)
	}
}

func TestValidateArticleDraftMinimal(t *testing.T) {
	t.Parallel()

	payload, err := ValidateArticleDraft(json.RawMessage(`{"title": "t", "description": "d"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	draft, err := payload.ToDraft()
	if err != nil {
		t.Fatalf("to draft: %v", err)
	}
	if draft.Category != "" {
		t.Fatalf("category = %q, want empty for omitted input", draft.Category)
	}
	if !draft.Date.IsZero() {
		t.Fatalf("date = %v, want zero", draft.Date)
	}
	if draft.Provenance() != news.DefaultProvenance {
		t.Fatalf("provenance = %q, want %q", draft.Provenance(), news.DefaultProvenance)
	}
}

func TestValidateArticleDraftRejected(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing title":       `{"description": "d"}`,
		"missing description": `{"title": "t"}`,
		"unknown field":       `{"title": "t", "description": "d", "author": "x"}`,
		"bad category":        `{"title": "t", "description": "d", "category": "sports"}`,
		"wildcard category":   `{"title": "t", "description": "d", "category": "all"}`,
		"bad language":        `{"title": "t", "description": "d", "language": "ENG"}`,
		"non-string tag":      `{"title": "t", "description": "d", "tags": [1]}`,
		"empty payload":       ``,
		"trailing content":    `{"title": "t", "description": "d"} {}`,
		"array payload":       `[]`,
		"blank title":         `{"title": "   ", "description": "d"}`,
		"blank description":   `{"title": "t", "description": " "}`,
		"empty title string":  `{"title": "", "description": "d"}`,
	}

	for name, payload := range cases {
		if _, err := ValidateArticleDraft(json.RawMessage(payload)); err == nil {
			t.Fatalf("%s: payload accepted, want error", name)
		}
	}
}

func TestValidateArticleDraftBlankTitleIsValidationError(t *testing.T) {
	t.Parallel()

	_, err := ValidateArticleDraft(json.RawMessage(`{"title": "  ", "description": "d"}`))
	if !news.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestToDraftRejectsBadDate(t *testing.T) {
	t.Parallel()

	payload, err := ValidateArticleDraft(json.RawMessage(`{"title": "t", "description": "d", "date": "June 3rd"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := payload.ToDraft(); !news.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError for date", err)
	}
}

func TestToDraftParsesRFC3339(t *testing.T) {
	t.Parallel()

	payload, err := ValidateArticleDraft(json.RawMessage(`{"title": "t", "description": "d", "date": "2025-06-03T14:30:00Z"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	draft, err := payload.ToDraft()
	if err != nil {
		t.Fatalf("to draft: %v", err)
	}
	want := time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC)
	if !draft.Date.Equal(want) {
		t.Fatalf("date = %v, want %v", draft.Date, want)
	}
}

func TestToDraftDedupesTags(t *testing.T) {
	t.Parallel()

	payload, err := ValidateArticleDraft(json.RawMessage(`{"title": "t", "description": "d", "tags": ["a", "a", " b "]}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	draft, err := payload.ToDraft()
	if err != nil {
		t.Fatalf("to draft: %v", err)
	}
	if len(draft.Tags) != 2 || draft.Tags[0] != "a" || draft.Tags[1] != "b" {
		t.Fatalf("tags = %v, want [a b]", draft.Tags)
	}
}
