package core

// archive.go extracts uploaded .osz archives. Extraction is the security
// boundary of the import pipeline: entry names are attacker-controlled,
// so every destination is canonicalized and checked against the
// extraction root before any filesystem write. Unsafe or disallowed
// entries are skipped, never fatal, so one bad entry cannot block an
// otherwise valid archive.

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// allowedEntryExts is the extraction allow-list: chart files plus common
// audio and image formats. Everything else is smuggling risk or junk.
var allowedEntryExts = map[string]bool{
	".osu":  true,
	".mp3":  true,
	".ogg":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// ChartFileExt is the extension of parseable chart files.
const ChartFileExt = ".osu"

// extractArchive unpacks the archive at archivePath into root and
// returns the slash-separated relative paths of the extracted files.
func extractArchive(archivePath, root string, logger *slog.Logger) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, ErrInvalidInput("not a readable archive: %v", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction root: %w", err)
	}

	var extracted []string
	for _, entry := range reader.File {
		name := entry.Name
		if name == "" || entry.FileInfo().IsDir() {
			continue
		}
		if !allowedEntryExts[strings.ToLower(filepath.Ext(name))] {
			logger.Debug("skipping disallowed archive entry", "entry", name)
			continue
		}

		dest := filepath.Clean(filepath.Join(root, filepath.FromSlash(name)))
		rel, err := filepath.Rel(root, dest)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			logger.Warn("skipping archive entry escaping extraction root", "entry", name)
			continue
		}

		if err := writeEntry(entry, dest); err != nil {
			return nil, fmt.Errorf("extract %q: %w", name, err)
		}
		extracted = append(extracted, filepath.ToSlash(rel))
	}
	return extracted, nil
}

func writeEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	return out.Close()
}
