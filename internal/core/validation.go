package core

// validation.go holds the preflight and postcondition checks for both
// import entry points, plus storage-key sanitization. Checks return a
// classified *Error so the web layer can answer with the right status.

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/wasd09090030/chartvault/internal/assetstore"
	"github.com/wasd09090030/chartvault/internal/chart"
)

// ArchiveExt is the accepted archive extension, matched case-insensitively.
const ArchiveExt = ".osz"

// MaxStorageKeyLen caps the sanitized storage key length.
const MaxStorageKeyLen = 64

// EnsureValidArchiveUpload checks an uploaded archive before any work is
// done on it.
func EnsureValidArchiveUpload(fileName string, size int64) error {
	if size <= 0 {
		return ErrInvalidInput("uploaded file is empty")
	}
	if !strings.EqualFold(filepath.Ext(fileName), ArchiveExt) {
		return ErrInvalidInput("unsupported file type %q, expected %s", filepath.Ext(fileName), ArchiveExt)
	}
	return nil
}

// EnsureValidImportRequest checks a pre-uploaded bundle request.
func EnsureValidImportRequest(req *ImportRequest) error {
	if req == nil || len(req.ChartFiles) == 0 {
		return ErrInvalidInput("import request contains no chart files")
	}
	return nil
}

// EnsureAssetStoreReady checks that the asset store collaborator is
// configured before an import starts uploading.
func EnsureAssetStoreReady(cfg assetstore.Config) error {
	if cfg.Domain == "" || cfg.APIToken == "" {
		return ErrNotConfigured("asset store domain and token must be configured")
	}
	return nil
}

// EnsureHasEligibleCharts checks that the mode filter left at least one
// chart to import.
func EnsureHasEligibleCharts(charts []*chart.ParsedChart) error {
	if len(charts) == 0 {
		return ErrNoEligibleContent("archive contains no mania charts")
	}
	return nil
}

var (
	// unsafeKeyChars matches path separators, characters invalid in
	// common filesystems, and whitespace runs.
	unsafeKeyChars = regexp.MustCompile(`[/\\:*?"<>|\s]+`)
	repeatedDashes = regexp.MustCompile(`-{2,}`)
)

// BuildStorageKey derives the stable remote folder name for an import
// from its source filename. The result is filesystem- and URL-safe; a
// filename that sanitizes to nothing gets a random opaque key instead.
func BuildStorageKey(sourceFileName string) string {
	base := filepath.Base(strings.ReplaceAll(sourceFileName, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	key := unsafeKeyChars.ReplaceAllString(base, "-")
	key = repeatedDashes.ReplaceAllString(key, "-")
	key = strings.Trim(key, "-.")

	if len(key) > MaxStorageKeyLen {
		key = strings.Trim(key[:MaxStorageKeyLen], "-.")
	}
	if key == "" {
		return uuid.New().String()
	}
	return key
}
