package core

// mapper.go turns parsed charts into the persistable aggregate and owns
// the path arithmetic between local relative paths, remote upload
// folders, and public URLs.

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wasd09090030/chartvault/internal/assetstore"
	"github.com/wasd09090030/chartvault/internal/chart"
	"github.com/wasd09090030/chartvault/internal/database"
)

// DefaultUploadRoot is the base remote folder used when the asset store
// config does not name one.
const DefaultUploadRoot = "charts"

// StoredChartData is the durable representation written into a
// difficulty's data blob. It is deliberately decoupled from
// chart.ParsedChart so parser changes cannot alter the storage schema
// silently.
type StoredChartData struct {
	Columns       int                 `json:"columns"`
	AudioLeadInMs *int                `json:"audioLeadInMs,omitempty"`
	PreviewTimeMs *int                `json:"previewTimeMs,omitempty"`
	TimingPoints  []chart.TimingPoint `json:"timingPoints"`
	Notes         []chart.Note        `json:"notes"`
}

// FilenameMetadata is best-effort metadata recovered from a
// conventionally named archive: "<ms-epoch><sep><artist> - <title>.osz".
// The zero value means nothing was recoverable.
type FilenameMetadata struct {
	CreatedAt time.Time
	Artist    string
	Title     string
}

// filenamePrefix matches a 13-digit millisecond epoch followed by a
// separator, as produced by uploader tooling that prefixes timestamps.
var filenamePrefix = regexp.MustCompile(`^(\d{13})[-_ ]+(.*)$`)

// ParseFilenameMetadata recovers metadata from an archive filename.
// Filenames without the conventional shape yield the zero value, never
// an error.
func ParseFilenameMetadata(fileName string) FilenameMetadata {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	m := filenamePrefix.FindStringSubmatch(base)
	if m == nil {
		return FilenameMetadata{}
	}

	epochMs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return FilenameMetadata{}
	}

	meta := FilenameMetadata{CreatedAt: time.UnixMilli(epochMs).UTC()}
	if artist, title, ok := strings.Cut(m[2], " - "); ok {
		meta.Artist = strings.TrimSpace(artist)
		meta.Title = strings.TrimSpace(title)
	}
	return meta
}

// UploadedFile is one caller-supplied (path, remote URL) pair of a
// pre-uploaded bundle.
type UploadedFile struct {
	Path string `json:"path"`
	Src  string `json:"src"`
}

// NormalizeUploadedFileMap builds a case-insensitive relative-path to
// remote-URL map from raw pairs. Separators are normalized to "/" and a
// leading slash is trimmed so lookups match resolver output.
func NormalizeUploadedFileMap(entries []UploadedFile) map[string]string {
	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		p := strings.ToLower(filepath.ToSlash(strings.TrimSpace(entry.Path)))
		p = strings.TrimPrefix(path.Clean("/"+p), "/")
		if p == "" || p == "." {
			continue
		}
		files[p] = entry.Src
	}
	return files
}

// BuildUploadRoot composes the remote folder all assets of one import
// live under.
func BuildUploadRoot(baseFolder, storageKey string) string {
	base := strings.Trim(filepath.ToSlash(baseFolder), "/")
	if base == "" {
		base = DefaultUploadRoot
	}
	return base + "/" + storageKey
}

// CombineUploadFolder appends a file's original relative directory to
// the upload root so the remote layout mirrors the archive layout.
func CombineUploadFolder(root, relativeDir string) string {
	rel := strings.Trim(filepath.ToSlash(relativeDir), "/")
	if rel == "" || rel == "." {
		return root
	}
	return root + "/" + rel
}

// BuildAggregate maps parsed charts into the persistable set and its
// difficulties. The first chart is the primary source for set-level
// fields; metadata recovered from the archive filename overrides the
// embedded tags, since uploaders routinely rename files.
func BuildAggregate(charts []*chart.ParsedChart, sourceFileName, storageKey string, uploaded map[string]string) (*database.ChartSet, []database.Difficulty, error) {
	if len(charts) == 0 {
		return nil, nil, ErrNoEligibleContent("no charts to map")
	}

	primary := charts[0]
	meta := ParseFilenameMetadata(sourceFileName)

	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	set := &database.ChartSet{
		Title:         firstNonEmpty(meta.Title, primary.Title),
		Artist:        firstNonEmpty(meta.Artist, primary.Artist),
		Creator:       primary.Creator,
		StorageKey:    storageKey,
		BackgroundURL: lookupUploaded(uploaded, primary.BackgroundFile),
		AudioURL:      lookupUploaded(uploaded, primary.AudioFile),
		PreviewTimeMs: primary.PreviewTimeMs,
		CreatedAt:     createdAt,
	}

	diffs := make([]database.Difficulty, 0, len(charts))
	for _, c := range charts {
		data := StoredChartData{
			Columns:       c.Columns,
			AudioLeadInMs: c.AudioLeadInMs,
			PreviewTimeMs: c.PreviewTimeMs,
			TimingPoints:  c.TimingPoints,
			Notes:         c.Notes,
		}
		blob, err := json.Marshal(data)
		if err != nil {
			return nil, nil, fmt.Errorf("serialize chart data for %q: %w", c.SourcePath, err)
		}
		diffs = append(diffs, database.Difficulty{
			Version:           c.Version,
			ColumnCount:       c.Columns,
			OverallDifficulty: c.OverallDifficulty,
			Bpm:               c.Bpm,
			SourceFileName:    path.Base(c.SourcePath),
			Data:              blob,
			NoteCount:         len(c.Notes),
			CreatedAt:         createdAt,
		})
	}
	return set, diffs, nil
}

// ResolveFolderPathForDeletion reconstructs the remote folder of a set
// from its persisted asset URLs. The store's URL shape may drift, so
// resolution falls through three tiers: the path up to the storage-key
// segment, then the asset's parent directory, then the deterministic
// upload root.
func ResolveFolderPathForDeletion(set *database.ChartSet, cfg assetstore.Config) string {
	for _, candidate := range []*string{set.BackgroundURL, set.AudioURL} {
		if candidate == nil || *candidate == "" {
			continue
		}
		p := remotePathOf(*candidate)
		if p == "" {
			continue
		}
		segments := strings.Split(p, "/")
		for i, seg := range segments {
			if seg == set.StorageKey {
				return strings.Join(segments[:i+1], "/")
			}
		}
		if dir := path.Dir(p); dir != "." && dir != "/" {
			return dir
		}
	}
	return BuildUploadRoot(cfg.UploadFolder, set.StorageKey)
}

// remotePathOf normalizes an asset URL to a store-relative path,
// dropping scheme, host, the public download prefix, and any percent
// escaping.
func remotePathOf(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}
	p = strings.Trim(filepath.ToSlash(p), "/")
	if rest, ok := strings.CutPrefix(p, assetstore.PublicPathPrefix+"/"); ok {
		p = rest
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func lookupUploaded(uploaded map[string]string, relPath string) *string {
	if relPath == "" {
		return nil
	}
	if u, ok := uploaded[strings.ToLower(relPath)]; ok && u != "" {
		return &u
	}
	return nil
}
