// Package draftschema validates incoming article draft payloads against the
// embedded JSON schema before any engine mutation is attempted.
package draftschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/cybernews/internal/news"
)

//go:embed article_draft.schema.json
var articleDraftSchemaJSON string

// DraftPayload is the wire shape of a submitted draft.
type DraftPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     *string  `json:"content,omitempty"`
	Date        *string  `json:"date,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Image       *string  `json:"image,omitempty"`
	URL         *string  `json:"url,omitempty"`
	Source      *string  `json:"source,omitempty"`
	Language    *string  `json:"language,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateArticleDraft checks a raw payload against the schema and returns
// the decoded payload. Schema violations and blank required fields surface
// as errors before anything reaches the store.
func ValidateArticleDraft(payload json.RawMessage) (*DraftPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var draft DraftPayload
	if err := json.Unmarshal(normalized, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if strings.TrimSpace(draft.Title) == "" {
		return nil, &news.ValidationError{Field: "title", Reason: "must not be blank"}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return nil, &news.ValidationError{Field: "description", Reason: "must not be blank"}
	}

	return &draft, nil
}

// ToDraft converts the validated payload into an engine draft.
func (p *DraftPayload) ToDraft() (news.Draft, error) {
	draft := news.Draft{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Content:     optionalString(p.Content),
		Tags:        news.DedupeStrings(p.Tags),
		Image:       optionalString(p.Image),
		URL:         optionalString(p.URL),
		Source:      optionalString(p.Source),
		Language:    optionalString(p.Language),
	}

	category, err := news.ParseCategory(optionalString(p.Category))
	if err != nil {
		return news.Draft{}, err
	}
	if category != news.CategoryAll {
		draft.Category = category
	}

	if raw := optionalString(p.Date); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return news.Draft{}, &news.ValidationError{Field: "date", Reason: err.Error()}
		}
		draft.Date = date
	}

	return draft, nil
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	if day, err := time.Parse("2006-01-02", raw); err == nil {
		return day.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("must be RFC3339 or YYYY-MM-DD")
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("article_draft.schema.json", strings.NewReader(articleDraftSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("article_draft.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
