package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wasd09090030/chartvault/internal/assetstore"
	"github.com/wasd09090030/chartvault/internal/chart"
	"github.com/wasd09090030/chartvault/internal/database"
)

func TestParseFilenameMetadata(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantEpoch  int64
		wantArtist string
		wantTitle  string
	}{
		{"conventional", "1700000000000-Artist - Title.osz", 1700000000000, "Artist", "Title"},
		{"underscore separator", "1700000000000_Artist - Title.osz", 1700000000000, "Artist", "Title"},
		{"title with dash", "1700000000000-Artist - A - B.osz", 1700000000000, "Artist", "A - B"},
		{"timestamp only", "1700000000000-no split here.osz", 1700000000000, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := ParseFilenameMetadata(tt.in)
			if got := meta.CreatedAt.UnixMilli(); got != tt.wantEpoch {
				t.Errorf("expected epoch %d, got %d", tt.wantEpoch, got)
			}
			if meta.Artist != tt.wantArtist {
				t.Errorf("expected artist %q, got %q", tt.wantArtist, meta.Artist)
			}
			if meta.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, meta.Title)
			}
		})
	}
}

func TestParseFilenameMetadata_Unparseable(t *testing.T) {
	for _, in := range []string{"randomname.osz", "123-short.osz", "", "Artist - Title.osz"} {
		meta := ParseFilenameMetadata(in)
		if !meta.CreatedAt.IsZero() || meta.Artist != "" || meta.Title != "" {
			t.Errorf("expected zero metadata for %q, got %+v", in, meta)
		}
	}
}

func TestNormalizeUploadedFileMap(t *testing.T) {
	got := NormalizeUploadedFileMap([]UploadedFile{
		{Path: "/BG.jpg", Src: "https://x/d/k/bg.jpg"},
		{Path: `sub\Audio.MP3`, Src: "https://x/d/k/sub/audio.mp3"},
		{Path: "  ", Src: "ignored"},
	})

	want := map[string]string{
		"bg.jpg":        "https://x/d/k/bg.jpg",
		"sub/audio.mp3": "https://x/d/k/sub/audio.mp3",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized map mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUploadRoot(t *testing.T) {
	if got := BuildUploadRoot("", "key"); got != "charts/key" {
		t.Errorf("expected default root, got %q", got)
	}
	if got := BuildUploadRoot("/media/", "key"); got != "media/key" {
		t.Errorf("expected trimmed base, got %q", got)
	}
}

func TestCombineUploadFolder(t *testing.T) {
	if got := CombineUploadFolder("charts/key", "."); got != "charts/key" {
		t.Errorf("expected root for %q, got %q", ".", got)
	}
	if got := CombineUploadFolder("charts/key", "sub/dir/"); got != "charts/key/sub/dir" {
		t.Errorf("expected joined folder, got %q", got)
	}
}

func sampleChart(version string, notes int) *chart.ParsedChart {
	bpm := 180.0
	preview := 1500
	c := &chart.ParsedChart{
		SourcePath:        "folder/" + version + ".osu",
		Mode:              3,
		IsMania:           true,
		Title:             "Embedded Title",
		Artist:            "Embedded Artist",
		Creator:           "mapper",
		Version:           version,
		AudioFile:         "folder/audio.mp3",
		BackgroundFile:    "folder/bg.jpg",
		PreviewTimeMs:     &preview,
		Columns:           4,
		OverallDifficulty: 7,
		Bpm:               &bpm,
		TimingPoints:      []chart.TimingPoint{{TimeMs: 0, BeatLength: 333.33, Meter: 4, Uninherited: true}},
	}
	for i := 0; i < notes; i++ {
		c.Notes = append(c.Notes, chart.Note{TimeMs: i * 100, Column: i % 4})
	}
	return c
}

func TestBuildAggregate(t *testing.T) {
	uploaded := map[string]string{
		"folder/bg.jpg":    "https://x/d/charts/key/folder/bg.jpg",
		"folder/audio.mp3": "https://x/d/charts/key/folder/audio.mp3",
	}
	charts := []*chart.ParsedChart{sampleChart("Hard", 5), sampleChart("Insane", 9)}

	set, diffs, err := BuildAggregate(charts, "1700000000000-Real Artist - Real Title.osz", "key", uploaded)
	if err != nil {
		t.Fatalf("BuildAggregate returned error: %v", err)
	}

	// Filename metadata outranks embedded tags.
	if set.Title != "Real Title" {
		t.Errorf("expected filename title to win, got %q", set.Title)
	}
	if set.Artist != "Real Artist" {
		t.Errorf("expected filename artist to win, got %q", set.Artist)
	}
	if set.Creator != "mapper" {
		t.Errorf("expected creator from primary chart, got %q", set.Creator)
	}
	if set.StorageKey != "key" {
		t.Errorf("expected storage key %q, got %q", "key", set.StorageKey)
	}
	if set.BackgroundURL == nil || *set.BackgroundURL != uploaded["folder/bg.jpg"] {
		t.Errorf("expected background URL from upload map, got %v", set.BackgroundURL)
	}
	if set.AudioURL == nil || *set.AudioURL != uploaded["folder/audio.mp3"] {
		t.Errorf("expected audio URL from upload map, got %v", set.AudioURL)
	}
	if want := time.UnixMilli(1700000000000).UTC(); !set.CreatedAt.Equal(want) {
		t.Errorf("expected createdAt %v, got %v", want, set.CreatedAt)
	}

	if len(diffs) != 2 {
		t.Fatalf("expected 2 difficulties, got %d", len(diffs))
	}
	if diffs[0].Version != "Hard" || diffs[1].Version != "Insane" {
		t.Errorf("expected versions in order, got %q, %q", diffs[0].Version, diffs[1].Version)
	}
	if diffs[0].NoteCount != 5 || diffs[1].NoteCount != 9 {
		t.Errorf("expected note counts 5 and 9, got %d and %d", diffs[0].NoteCount, diffs[1].NoteCount)
	}
	if diffs[0].SourceFileName != "Hard.osu" {
		t.Errorf("expected base source file name, got %q", diffs[0].SourceFileName)
	}
	if !diffs[0].CreatedAt.Equal(set.CreatedAt) {
		t.Error("expected difficulty createdAt to match the set")
	}

	var stored StoredChartData
	if err := json.Unmarshal(diffs[0].Data, &stored); err != nil {
		t.Fatalf("data blob is not valid JSON: %v", err)
	}
	if stored.Columns != 4 {
		t.Errorf("expected 4 columns in stored data, got %d", stored.Columns)
	}
	if len(stored.Notes) != 5 {
		t.Errorf("expected 5 stored notes, got %d", len(stored.Notes))
	}
	if len(stored.TimingPoints) != 1 {
		t.Errorf("expected 1 stored timing point, got %d", len(stored.TimingPoints))
	}
}

func TestBuildAggregate_FallsBackToEmbeddedMetadata(t *testing.T) {
	charts := []*chart.ParsedChart{sampleChart("Hard", 1)}
	set, _, err := BuildAggregate(charts, "randomname.osz", "key", nil)
	if err != nil {
		t.Fatalf("BuildAggregate returned error: %v", err)
	}
	if set.Title != "Embedded Title" || set.Artist != "Embedded Artist" {
		t.Errorf("expected embedded tags, got %q / %q", set.Title, set.Artist)
	}
	if set.CreatedAt.IsZero() {
		t.Error("expected createdAt defaulted to now")
	}
	if set.BackgroundURL != nil {
		t.Error("expected nil background URL without uploads")
	}
}

func strPtr(s string) *string { return &s }

func TestResolveFolderPathForDeletion(t *testing.T) {
	cfg := assetstore.Config{UploadFolder: "media"}

	tests := []struct {
		name string
		set  database.ChartSet
		want string
	}{
		{
			name: "storage key segment in URL",
			set: database.ChartSet{
				StorageKey:    "my-song",
				BackgroundURL: strPtr("https://assets.example.com/d/charts/my-song/folder/bg.jpg"),
			},
			want: "charts/my-song",
		},
		{
			name: "audio URL when background missing",
			set: database.ChartSet{
				StorageKey: "my-song",
				AudioURL:   strPtr("https://assets.example.com/d/charts/my-song/audio.mp3"),
			},
			want: "charts/my-song",
		},
		{
			name: "no key segment falls back to parent dir",
			set: database.ChartSet{
				StorageKey:    "renamed-later",
				BackgroundURL: strPtr("https://assets.example.com/d/charts/old-name/bg.jpg"),
			},
			want: "charts/old-name",
		},
		{
			name: "no assets falls back to computed root",
			set: database.ChartSet{
				StorageKey: "my-song",
			},
			want: "media/my-song",
		},
		{
			name: "bare path without scheme",
			set: database.ChartSet{
				StorageKey:    "my-song",
				BackgroundURL: strPtr("/d/charts/my-song/bg.jpg"),
			},
			want: "charts/my-song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFolderPathForDeletion(&tt.set, cfg); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
