package chart

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AssetResolver resolves an asset filename referenced by a chart line
// against the directory the chart itself lives in. The returned path is
// slash-separated and relative to the resolver's root (or namespace); ok
// is false when the reference cannot be resolved safely.
type AssetResolver interface {
	Resolve(chartDir, fileName string) (string, bool)
}

// DirResolver resolves references against an extraction directory on
// disk. Canonicalized candidates that escape the root are rejected; a
// literal miss is retried once with a case-insensitive match inside the
// same directory.
type DirResolver struct {
	root string
}

// NewDirResolver creates a resolver rooted at dir. The root is
// canonicalized once so descendant checks compare like with like.
func NewDirResolver(dir string) *DirResolver {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return &DirResolver{root: abs}
}

func (r *DirResolver) Resolve(chartDir, fileName string) (string, bool) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", false
	}

	candidate := filepath.Join(r.root, filepath.FromSlash(chartDir), filepath.FromSlash(fileName))
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(r.root, candidate)
	if err != nil || escapesRoot(rel) {
		return "", false
	}

	if _, err := os.Stat(candidate); err == nil {
		return filepath.ToSlash(rel), true
	}

	// Literal miss: charts frequently reference assets with the wrong
	// case. Retry against the actual directory listing.
	dir := filepath.Dir(candidate)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	want := filepath.Base(candidate)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), want) {
			matched := filepath.Join(dir, entry.Name())
			mrel, err := filepath.Rel(r.root, matched)
			if err != nil || escapesRoot(mrel) {
				return "", false
			}
			return filepath.ToSlash(mrel), true
		}
	}
	return "", false
}

// MapResolver resolves references purely lexically against a set of
// known relative paths, for imports whose assets were uploaded ahead of
// time and exist only as remote URLs.
type MapResolver struct {
	known map[string]string
}

// NewMapResolver creates a resolver over a normalized relative-path map.
// Keys must already be lowercase and slash-separated (see
// core.NormalizeUploadedFileMap).
func NewMapResolver(files map[string]string) *MapResolver {
	return &MapResolver{known: files}
}

func (r *MapResolver) Resolve(chartDir, fileName string) (string, bool) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", false
	}

	joined := path.Join(strings.ToLower(filepath.ToSlash(chartDir)), strings.ToLower(filepath.ToSlash(fileName)))
	joined = strings.TrimPrefix(joined, "/")
	if escapesRoot(joined) {
		return "", false
	}
	if _, ok := r.known[joined]; !ok {
		return "", false
	}
	return joined, true
}

// escapesRoot reports whether a cleaned relative path climbs out of its
// root via a leading parent segment.
func escapesRoot(rel string) bool {
	rel = filepath.ToSlash(rel)
	return rel == ".." || strings.HasPrefix(rel, "../")
}
