// Package chart parses .osu chart files into an intermediate model.
// This package has no persistence or network dependencies and can be
// driven from extracted archive files or in-memory strings.
package chart

import (
	"strconv"
	"strings"
)

// Section identifies a chart file section. Routing over sections is
// exhaustive; unrecognized section names map to SectionUnknown and their
// lines are ignored for forward compatibility.
type Section int

const (
	SectionUnknown Section = iota
	SectionGeneral
	SectionMetadata
	SectionDifficulty
	SectionEvents
	SectionTimingPoints
	SectionHitObjects
)

// sectionFromName maps a raw [Section] header to its Section value.
func sectionFromName(name string) Section {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "general":
		return SectionGeneral
	case "metadata":
		return SectionMetadata
	case "difficulty":
		return SectionDifficulty
	case "events":
		return SectionEvents
	case "timingpoints":
		return SectionTimingPoints
	case "hitobjects":
		return SectionHitObjects
	default:
		return SectionUnknown
	}
}

// Properties is an ordered key/value section. Keys are case-insensitive;
// writing an existing key overwrites its value in place (last write wins).
type Properties struct {
	keys   []string
	values map[string]string
}

// Set stores a key/value pair, overwriting any previous value for the key.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	lower := strings.ToLower(key)
	if _, ok := p.values[lower]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[lower] = value
}

// Get returns the value for key, or "" when absent.
func (p *Properties) Get(key string) string {
	if p.values == nil {
		return ""
	}
	return p.values[strings.ToLower(key)]
}

// Has reports whether key is present.
func (p *Properties) Has(key string) bool {
	if p.values == nil {
		return false
	}
	_, ok := p.values[strings.ToLower(key)]
	return ok
}

// Len returns the number of distinct keys.
func (p *Properties) Len() int { return len(p.keys) }

// Keys returns the key names in first-write order.
func (p *Properties) Keys() []string { return p.keys }

// GetInt returns the value for key parsed as an integer, or def when the
// key is absent or unparseable.
func (p *Properties) GetInt(key string, def int) int {
	raw := strings.TrimSpace(p.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// GetFloat returns the value for key parsed as a float, or def when the
// key is absent or unparseable.
func (p *Properties) GetFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(p.Get(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

// TimingPoint is a tempo/meter directive starting at TimeMs. Uninherited
// points define an absolute beat length; inherited points modify it.
type TimingPoint struct {
	TimeMs      int     `json:"time"`
	BeatLength  float64 `json:"beatLength"`
	Meter       int     `json:"meter"`
	Uninherited bool    `json:"uninherited"`
}

// Note is a single playable object mapped to a logical column.
// EndTimeMs is set only for long notes.
type Note struct {
	TimeMs    int  `json:"time"`
	Column    int  `json:"column"`
	EndTimeMs *int `json:"endTime,omitempty"`
}

// ParsedChart is the per-file intermediate result of parsing one chart.
//
// Invariants: Columns >= 1; every Note.Column is in [0, Columns-1];
// Notes is empty unless IsMania is true.
type ParsedChart struct {
	// SourcePath is the slash-separated path of the chart file relative
	// to its extraction root (or the virtual path in map mode).
	SourcePath string

	General    Properties
	Metadata   Properties
	Difficulty Properties

	Mode    int
	IsMania bool

	Title   string
	Artist  string
	Creator string
	Version string

	// AudioFile and BackgroundFile are resolver-normalized relative
	// paths, or "" when the reference was missing or unresolved.
	AudioFile      string
	BackgroundFile string

	PreviewTimeMs *int
	AudioLeadInMs *int

	Columns           int
	OverallDifficulty float64
	Bpm               *float64

	TimingPoints []TimingPoint
	Notes        []Note
}

// maniaMode is the mode value for fixed-column charts.
const maniaMode = 3

// coordinateSpace is the fixed horizontal coordinate range of the chart
// format; x values are mapped from it into logical columns.
const coordinateSpace = 512

// columnForX maps a raw x coordinate into a logical column, clamped to
// [0, columns-1].
func columnForX(x, columns int) int {
	col := x * columns / coordinateSpace
	if col < 0 {
		col = 0
	}
	if col > columns-1 {
		col = columns - 1
	}
	return col
}
