package core

import (
	"archive/zip"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// buildArchive writes a zip with the given name -> content entries.
func buildArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "test.osz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractArchive(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"song.osu":       "[General]\nMode: 3\n",
		"audio.mp3":      "mp3bytes",
		"folder/bg.jpg":  "jpgbytes",
		"readme.txt":     "not allow-listed",
		"script.sh":      "#!/bin/sh\n",
		"folder/":        "",
		"../../evil.jpg": "escapes the root",
	})

	root := filepath.Join(t.TempDir(), "out")
	files, err := extractArchive(archive, root, slog.Default())
	if err != nil {
		t.Fatalf("extractArchive returned error: %v", err)
	}

	sort.Strings(files)
	want := []string{"audio.mp3", "folder/bg.jpg", "song.osu"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("expected %v, got %v", want, files)
			break
		}
	}

	// The traversal entry must not exist anywhere above the root.
	escaped := filepath.Clean(filepath.Join(root, "..", "..", "evil.jpg"))
	if _, err := os.Stat(escaped); err == nil {
		t.Fatalf("traversal entry was written outside the extraction root: %s", escaped)
	}

	// Extracted content is intact.
	data, err := os.ReadFile(filepath.Join(root, "folder", "bg.jpg"))
	if err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
	if string(data) != "jpgbytes" {
		t.Errorf("unexpected extracted content %q", data)
	}
}

func TestExtractArchive_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.osz")
	if err := os.WriteFile(path, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := extractArchive(path, filepath.Join(t.TempDir(), "out"), slog.Default())
	if err == nil {
		t.Fatal("expected error for non-zip input")
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestExtractArchive_AbsoluteEntry(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"/tmp/abs.jpg": "absolute path entry",
		"ok.jpg":       "fine",
	})

	root := filepath.Join(t.TempDir(), "out")
	files, err := extractArchive(archive, root, slog.Default())
	if err != nil {
		t.Fatalf("extractArchive returned error: %v", err)
	}

	// The absolute entry is rooted under the extraction dir, never at /tmp.
	for _, f := range files {
		if filepath.IsAbs(f) {
			t.Errorf("extracted path %q should be relative", f)
		}
	}
}
