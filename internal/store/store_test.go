package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("Get on missing key reported found")
	}

	if err := s.Set("published_log", []byte(`{"1785":true}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, ok := s.Get("published_log")
	if !ok {
		t.Fatal("Get did not find stored key")
	}
	if string(data) != `{"1785":true}` {
		t.Errorf("Get: got %q", data)
	}

	// Overwrite wins.
	if err := s.Set("published_log", []byte(`{}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, _ = s.Get("published_log")
	if string(data) != `{}` {
		t.Errorf("after overwrite: got %q", data)
	}
}

func TestLocalStoreJSON(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	in := map[string]string{"1785": "2026-08-20", "2041": "2026-08-21"}
	if err := s.SetJSON("published", in); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out map[string]string
	if !s.GetJSON("published", &out) {
		t.Fatal("GetJSON did not find stored key")
	}
	if len(out) != 2 || out["1785"] != "2026-08-20" {
		t.Errorf("GetJSON: got %v", out)
	}

	if s.GetJSON("missing", &out) {
		t.Error("GetJSON on missing key reported found")
	}

	// Corrupt payloads read as absent rather than erroring.
	if err := s.Set("broken", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if s.GetJSON("broken", &out) {
		t.Error("GetJSON on corrupt payload reported found")
	}
}

func TestLocalStoreFilesOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(filepath.Join(dir, "state"))
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	if err := s.Set("progress", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state", "progress.json")); err != nil {
		t.Errorf("expected progress.json on disk: %v", err)
	}
}

func TestGCSObjectName(t *testing.T) {
	s := &GCSStore{bucket: "b"}
	if got := s.objectName("published"); got != "published.json" {
		t.Errorf("objectName: got %q", got)
	}
	s.prefix = "state/holy"
	if got := s.objectName("published"); got != "state/holy/published.json" {
		t.Errorf("objectName with prefix: got %q", got)
	}
}
