package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	draftschema "horse.fit/cybernews/schema"
)

// submit validates one draft payload locally, then posts it to a running
// server so the dedup decision runs against the live corpus.
func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	addr := fs.String("addr", "http://localhost:8010", "Base URL of the running API server")
	payload := fs.String("payload", "", "Draft article payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to payload JSON file (overrides --payload)")
	force := fs.Bool("force", false, "Create even when duplicate candidates exist")
	timeout := fs.Duration("timeout", 20*time.Second, "Request timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	if _, err := draftschema.ValidateArticleDraft(payloadJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	endpoint, err := url.JoinPath(strings.TrimRight(*addr, "/"), "/api/v1/articles")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --addr: %v\n", err)
		return 2
	}
	if *force {
		endpoint += "?force=true"
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payloadJSON))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submit failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read response failed: %v\n", err)
		return 1
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		fmt.Printf("created %s\n", strings.TrimSpace(string(body)))
		return 0
	case http.StatusConflict:
		fmt.Printf("duplicates %s\n", strings.TrimSpace(string(body)))
		fmt.Fprintln(os.Stderr, "Duplicate candidates found; re-run with --force or merge via POST /api/v1/articles/{id}/merge")
		return 3
	default:
		fmt.Fprintf(os.Stderr, "Submit failed: status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		return 1
	}
}

func loadJSONInput(inlineValue, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file %q: %w", label, path, err)
		}
		trimmed := strings.TrimSpace(string(payload))
		if trimmed == "" {
			return nil, fmt.Errorf("%s file %q is empty", label, path)
		}
		return json.RawMessage(trimmed), nil
	}

	trimmed := strings.TrimSpace(inlineValue)
	if trimmed == "" {
		return nil, fmt.Errorf("%s JSON is empty", label)
	}
	return json.RawMessage(trimmed), nil
}
