package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const maniaChart = `osu file format v14

[General]
AudioFilename: audio.mp3
AudioLeadIn: 500
PreviewTime: 1200
Mode: 3

[Metadata]
Title:Plain Title
TitleUnicode:Unicode Title
Artist:Plain Artist
ArtistUnicode:Unicode Artist
Creator:mapper
Version:4K Hard

[Difficulty]
HPDrainRate:8
CircleSize:4
OverallDifficulty:7.5

[Events]
//Background and Video events
0,0,"bg.jpg",0,0
0,0,"second.jpg",0,0

[TimingPoints]
0,500,4,2,0,100,1,0
1000,-100,4,2,0,100,0,0
garbage,line
2000,400

[HitObjects]
64,192,1000,1,0,0:0:0:0:
192,192,2000,128,0,3000:0:0:0:0:
448,192,2500,1,0
bad,192,2600,1,0
64,192
`

func testResolver() *MapResolver {
	return NewMapResolver(map[string]string{
		"bg.jpg":    "https://assets.example.com/d/charts/x/bg.jpg",
		"audio.mp3": "https://assets.example.com/d/charts/x/audio.mp3",
	})
}

func TestParseContent_ManiaChart(t *testing.T) {
	c, err := ParseContent("song.osu", maniaChart, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}

	if !c.IsMania {
		t.Error("expected IsMania to be true")
	}
	if c.Mode != 3 {
		t.Errorf("expected mode 3, got %d", c.Mode)
	}
	if c.Title != "Unicode Title" {
		t.Errorf("expected unicode title preferred, got %q", c.Title)
	}
	if c.Artist != "Unicode Artist" {
		t.Errorf("expected unicode artist preferred, got %q", c.Artist)
	}
	if c.Creator != "mapper" {
		t.Errorf("expected creator %q, got %q", "mapper", c.Creator)
	}
	if c.Version != "4K Hard" {
		t.Errorf("expected version %q, got %q", "4K Hard", c.Version)
	}
	if c.Columns != 4 {
		t.Errorf("expected 4 columns, got %d", c.Columns)
	}
	if c.OverallDifficulty != 7.5 {
		t.Errorf("expected OD 7.5, got %v", c.OverallDifficulty)
	}
	if c.PreviewTimeMs == nil || *c.PreviewTimeMs != 1200 {
		t.Errorf("expected preview time 1200, got %v", c.PreviewTimeMs)
	}
	if c.AudioLeadInMs == nil || *c.AudioLeadInMs != 500 {
		t.Errorf("expected audio lead-in 500, got %v", c.AudioLeadInMs)
	}
	if c.AudioFile != "audio.mp3" {
		t.Errorf("expected resolved audio file, got %q", c.AudioFile)
	}
	if c.BackgroundFile != "bg.jpg" {
		t.Errorf("expected first background reference only, got %q", c.BackgroundFile)
	}
	if c.Bpm == nil || *c.Bpm != 120 {
		t.Errorf("expected bpm 120 from first uninherited point, got %v", c.Bpm)
	}
}

func TestParseContent_TimingPoints(t *testing.T) {
	c, err := ParseContent("song.osu", maniaChart, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}

	want := []TimingPoint{
		{TimeMs: 0, BeatLength: 500, Meter: 4, Uninherited: true},
		{TimeMs: 1000, BeatLength: -100, Meter: 4, Uninherited: false},
		{TimeMs: 2000, BeatLength: 400, Meter: 4, Uninherited: true},
	}
	if diff := cmp.Diff(want, c.TimingPoints); diff != "" {
		t.Errorf("timing points mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContent_Notes(t *testing.T) {
	c, err := ParseContent("song.osu", maniaChart, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}

	end := 3000
	want := []Note{
		{TimeMs: 1000, Column: 0},
		{TimeMs: 2000, Column: 1, EndTimeMs: &end},
		{TimeMs: 2500, Column: 3},
	}
	if diff := cmp.Diff(want, c.Notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContent_LongNoteRequiresBit128(t *testing.T) {
	content := "[General]\nMode: 3\n[Difficulty]\nCircleSize:4\n[HitObjects]\n192,192,2000,1,0,3000:0:0:0:0:\n"
	c, err := ParseContent("song.osu", content, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if len(c.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(c.Notes))
	}
	if c.Notes[0].EndTimeMs != nil {
		t.Errorf("expected tap note without end time, got %v", *c.Notes[0].EndTimeMs)
	}
}

func TestParseContent_NonManiaDiscardsNotes(t *testing.T) {
	content := "[General]\nMode: 0\n[Difficulty]\nCircleSize:4\n[HitObjects]\n64,192,1000,1,0\n192,192,2000,1,0\n"
	c, err := ParseContent("song.osu", content, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if c.IsMania {
		t.Error("expected IsMania false for mode 0")
	}
	if len(c.Notes) != 0 {
		t.Errorf("expected no notes for non-mania chart, got %d", len(c.Notes))
	}
}

func TestParseContent_Defaults(t *testing.T) {
	c, err := ParseContent("song.osu", "[General]\nMode: 3\n", testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if c.Columns != 4 {
		t.Errorf("expected default 4 columns, got %d", c.Columns)
	}
	if c.OverallDifficulty != 5 {
		t.Errorf("expected default OD 5, got %v", c.OverallDifficulty)
	}
	if c.PreviewTimeMs != nil {
		t.Errorf("expected absent preview time, got %v", *c.PreviewTimeMs)
	}
	if c.Bpm != nil {
		t.Errorf("expected absent bpm, got %v", *c.Bpm)
	}
}

func TestParseContent_ColumnsAtLeastOne(t *testing.T) {
	c, err := ParseContent("song.osu", "[General]\nMode: 3\n[Difficulty]\nCircleSize:0\n", testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if c.Columns != 1 {
		t.Errorf("expected columns clamped to 1, got %d", c.Columns)
	}
}

func TestParseContent_DuplicateKeyLastWriteWins(t *testing.T) {
	content := "[Metadata]\nTitle:first\ntitle:second\n"
	c, err := ParseContent("song.osu", content, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if got := c.Metadata.Get("TITLE"); got != "second" {
		t.Errorf("expected last write to win, got %q", got)
	}
	if c.Metadata.Len() != 1 {
		t.Errorf("expected 1 key, got %d", c.Metadata.Len())
	}
}

func TestProperties_KeysFirstWriteOrder(t *testing.T) {
	var p Properties
	p.Set("Title", "a")
	p.Set("Artist", "b")
	p.Set("Creator", "c")
	p.Set("TITLE", "overwritten")

	if diff := cmp.Diff([]string{"Title", "Artist", "Creator"}, p.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if got := p.Get("title"); got != "overwritten" {
		t.Errorf("expected overwrite to keep the original key slot, got value %q", got)
	}
}

func TestParseContent_UnknownSectionTolerated(t *testing.T) {
	content := "[Colours]\nCombo1: 255,0,0\n[General]\nMode: 3\n"
	c, err := ParseContent("song.osu", content, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if c.Mode != 3 {
		t.Errorf("expected mode 3 after unknown section, got %d", c.Mode)
	}
	if c.General.Has("Combo1") {
		t.Error("unknown section lines must not leak into other sections")
	}
}

func TestParseContent_CommentsAndMalformedPropertyLines(t *testing.T) {
	content := "[General]\n// a comment\nMode: 3\nno colon here\n: empty key\n"
	c, err := ParseContent("song.osu", content, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	if c.General.Len() != 1 {
		t.Errorf("expected only Mode to be captured, got %d keys", c.General.Len())
	}
}

func TestColumnForX_Property(t *testing.T) {
	for _, columns := range []int{1, 2, 4, 7, 10} {
		for x := 0; x < 512; x++ {
			col := columnForX(x, columns)
			if col < 0 || col > columns-1 {
				t.Fatalf("columnForX(%d, %d) = %d out of range", x, columns, col)
			}
			if want := x * columns / 512; col != want {
				t.Fatalf("columnForX(%d, %d) = %d, want %d", x, columns, col, want)
			}
		}
	}

	if got := columnForX(0, 4); got != 0 {
		t.Errorf("columnForX(0, 4) = %d, want 0", got)
	}
	if got := columnForX(511, 4); got != 3 {
		t.Errorf("columnForX(511, 4) = %d, want 3", got)
	}
	// Out-of-range coordinates clamp instead of producing bad columns.
	if got := columnForX(512, 4); got != 3 {
		t.Errorf("columnForX(512, 4) = %d, want 3", got)
	}
	if got := columnForX(-5, 4); got != 0 {
		t.Errorf("columnForX(-5, 4) = %d, want 0", got)
	}
}

// The file and in-memory entry points must produce identical results for
// identical input.
func TestParseFile_MatchesParseContent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "song.osu"), []byte(maniaChart), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"bg.jpg", "audio.mp3"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fromFile, err := ParseFile(root, "song.osu", NewDirResolver(root))
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	fromString, err := ParseContent("song.osu", maniaChart, testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}

	if diff := cmp.Diff(fromString, fromFile, cmp.AllowUnexported(Properties{})); diff != "" {
		t.Errorf("entry points diverged (-string +file):\n%s", diff)
	}
}

func TestParseContent_ManyColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("[General]\nMode: 3\n[Difficulty]\nCircleSize:7\n[HitObjects]\n")
	for x := 0; x < 512; x += 64 {
		fmt.Fprintf(&b, "%d,192,1000,1,0\n", x)
	}

	c, err := ParseContent("song.osu", b.String(), testResolver())
	if err != nil {
		t.Fatalf("ParseContent returned error: %v", err)
	}
	for _, n := range c.Notes {
		if n.Column < 0 || n.Column >= c.Columns {
			t.Fatalf("note column %d out of range [0,%d)", n.Column, c.Columns)
		}
	}
}
