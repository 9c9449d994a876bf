package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadJSONInput(t *testing.T) {
	t.Parallel()

	payload, err := loadJSONInput(`{"title": "t"}`, "", "payload")
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if string(payload) != `{"title": "t"}` {
		t.Fatalf("inline payload = %q", payload)
	}

	path := filepath.Join(t.TempDir(), "draft.json")
	if err := os.WriteFile(path, []byte(`  {"title": "from file"}  `), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	payload, err = loadJSONInput("ignored", path, "payload")
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if string(payload) != `{"title": "from file"}` {
		t.Fatalf("file payload = %q", payload)
	}

	if _, err := loadJSONInput("", "", "payload"); err == nil {
		t.Fatal("empty input accepted")
	}
	if _, err := loadJSONInput("", filepath.Join(t.TempDir(), "missing.json"), "payload"); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestCollectJSONFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "nested")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{
		filepath.Join(root, "b.json"),
		filepath.Join(root, "a.JSON"),
		filepath.Join(root, "ignore.txt"),
		filepath.Join(nested, "c.json"),
	} {
		if err := os.WriteFile(name, []byte(`{}`), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := collectJSONFiles(root, true)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("recursive files = %d, want 3: %v", len(files), files)
	}

	files, err = collectJSONFiles(root, false)
	if err != nil {
		t.Fatalf("collect flat: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("flat files = %d, want 2: %v", len(files), files)
	}

	if _, err := collectJSONFiles("", true); err == nil {
		t.Fatal("empty root accepted")
	}
}
