package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileCacheRoundTripOmitsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	cache := &FileCache{Path: path}

	if got, err := cache.Load(); got != nil || err != nil {
		t.Fatalf("Load on missing file = %v, %v; want nil, nil", got, err)
	}

	if err := cache.Save(*material("csrf-abc", "single-use")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"csrf_token":"csrf-abc"`) {
		t.Errorf("cache JSON missing csrf_token: %s", raw)
	}
	if strings.Contains(string(raw), "single-use") {
		t.Errorf("submission token must not be cached: %s", raw)
	}

	got, err := cache.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CSRFToken != "csrf-abc" || len(got.Cookies) != 1 || got.Cookies[0].Domain != "example.test" {
		t.Errorf("loaded cache: got %+v", got)
	}

	if err := cache.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := cache.Remove(); err != nil {
		t.Errorf("Remove on missing file should be a no-op, got %v", err)
	}
}

func TestFileCacheCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := (&FileCache{Path: path}).Load(); err == nil {
		t.Error("Load should fail on corrupt JSON")
	}
}
