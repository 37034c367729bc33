package chart

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// maxLineSize bounds a single chart line; real chart lines are short but
// storyboard exports occasionally carry very long event lines.
const maxLineSize = 1 << 20

// rawNote holds an objects-section line before column mapping. Columns
// come from the Difficulty section, which may appear after HitObjects,
// so mapping is deferred to the derived-field pass.
type rawNote struct {
	x     int
	time  int
	typ   int
	extra string
}

// longNoteBit marks hold objects in the type bitmask.
const longNoteBit = 128

type parser struct {
	chart    *ParsedChart
	resolver AssetResolver
	dir      string

	section       Section
	backgroundRef string
	sawBackground bool
	raw           []rawNote
}

// ParseFile parses the chart at relPath (slash-separated, relative to
// root) from disk. Asset references are resolved through res, which
// should be rooted at the same directory.
func ParseFile(root, relPath string, res AssetResolver) (*ParsedChart, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("open chart file: %w", err)
	}
	defer f.Close()
	return parse(relPath, f, res)
}

// ParseContent parses chart text held in memory. virtualPath positions
// the chart inside the caller's path namespace so relative asset
// references resolve identically to the file entry point.
func ParseContent(virtualPath, content string, res AssetResolver) (*ParsedChart, error) {
	return parse(virtualPath, strings.NewReader(content), res)
}

func parse(sourcePath string, r io.Reader, res AssetResolver) (*ParsedChart, error) {
	sourcePath = strings.TrimPrefix(filepath.ToSlash(sourcePath), "/")
	p := &parser{
		chart:    &ParsedChart{SourcePath: sourcePath},
		resolver: res,
		dir:      path.Dir(sourcePath),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		p.scanLine(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}

	p.finish()
	return p.chart, nil
}

func (p *parser) scanLine(line string) {
	if line == "" || strings.HasPrefix(line, "//") {
		return
	}

	if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		p.section = sectionFromName(line[1 : len(line)-1])
		return
	}

	switch p.section {
	case SectionGeneral:
		p.scanProperty(&p.chart.General, line)
	case SectionMetadata:
		p.scanProperty(&p.chart.Metadata, line)
	case SectionDifficulty:
		p.scanProperty(&p.chart.Difficulty, line)
	case SectionEvents:
		p.scanEvent(line)
	case SectionTimingPoints:
		p.scanTimingPoint(line)
	case SectionHitObjects:
		p.scanHitObject(line)
	case SectionUnknown:
		// Lines of unrecognized sections are ignored.
	}
}

// scanProperty handles a "Key: Value" line. Lines without a colon or
// with an empty key are ignored.
func (p *parser) scanProperty(props *Properties, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	props.Set(key, strings.TrimSpace(value))
}

// scanEvent captures the first background reference only; all other
// event lines (videos, breaks, storyboard commands) are ignored.
func (p *parser) scanEvent(line string) {
	if p.sawBackground {
		return
	}
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return
	}
	kind := strings.TrimSpace(fields[0])
	if kind != "0" && !strings.EqualFold(kind, "Background") {
		return
	}
	name := strings.Trim(strings.TrimSpace(fields[2]), `"`)
	if name == "" {
		return
	}
	p.backgroundRef = name
	p.sawBackground = true
}

func (p *parser) scanTimingPoint(line string) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return
	}
	timeMs, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return
	}
	beatLength, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return
	}

	meter := 4
	if len(fields) > 2 {
		if m, err := strconv.Atoi(strings.TrimSpace(fields[2])); err == nil {
			meter = m
		}
	}

	uninherited := true
	if len(fields) > 6 {
		uninherited = strings.TrimSpace(fields[6]) == "1"
	}

	p.chart.TimingPoints = append(p.chart.TimingPoints, TimingPoint{
		TimeMs:      timeMs,
		BeatLength:  beatLength,
		Meter:       meter,
		Uninherited: uninherited,
	})
}

func (p *parser) scanHitObject(line string) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return
	}
	timeMs, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return
	}
	typ, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return
	}

	note := rawNote{x: x, time: timeMs, typ: typ}
	if len(fields) > 5 {
		note.extra = strings.TrimSpace(fields[5])
	}
	p.raw = append(p.raw, note)
}

// finish runs the derived-field pass once all lines are consumed.
func (p *parser) finish() {
	c := p.chart

	c.Mode = c.General.GetInt("Mode", 0)
	c.IsMania = c.Mode == maniaMode

	c.Title = firstNonEmpty(c.Metadata.Get("TitleUnicode"), c.Metadata.Get("Title"))
	c.Artist = firstNonEmpty(c.Metadata.Get("ArtistUnicode"), c.Metadata.Get("Artist"))
	c.Creator = c.Metadata.Get("Creator")
	c.Version = c.Metadata.Get("Version")

	if c.General.Has("PreviewTime") {
		v := c.General.GetInt("PreviewTime", 0)
		c.PreviewTimeMs = &v
	}
	if c.General.Has("AudioLeadIn") {
		v := c.General.GetInt("AudioLeadIn", 0)
		c.AudioLeadInMs = &v
	}

	// CircleSize doubles as the column count in mania charts.
	columns := int(math.Round(c.Difficulty.GetFloat("CircleSize", 4)))
	if columns < 1 {
		columns = 1
	}
	c.Columns = columns
	c.OverallDifficulty = c.Difficulty.GetFloat("OverallDifficulty", 5)

	for _, tp := range c.TimingPoints {
		if tp.Uninherited && tp.BeatLength > 0 {
			bpm := 60000 / tp.BeatLength
			c.Bpm = &bpm
			break
		}
	}

	if audio := strings.TrimSpace(c.General.Get("AudioFilename")); audio != "" {
		if resolved, ok := p.resolver.Resolve(p.dir, audio); ok {
			c.AudioFile = resolved
		}
	}
	if p.backgroundRef != "" {
		if resolved, ok := p.resolver.Resolve(p.dir, p.backgroundRef); ok {
			c.BackgroundFile = resolved
		}
	}

	// Wrong-mode charts contribute no notes, whatever their objects
	// section contained.
	if !c.IsMania {
		return
	}
	for _, rn := range p.raw {
		note := Note{TimeMs: rn.time, Column: columnForX(rn.x, c.Columns)}
		if rn.typ&longNoteBit != 0 && rn.extra != "" {
			head, _, _ := strings.Cut(rn.extra, ":")
			if end, err := strconv.Atoi(strings.TrimSpace(head)); err == nil {
				note.EndTimeMs = &end
			}
		}
		c.Notes = append(c.Notes, note)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
