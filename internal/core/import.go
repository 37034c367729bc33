package core

// import.go holds the two import entry points. Both share the
// validate → parse → filter → map → persist pipeline; they differ only
// in where chart bytes and assets come from (a local extracted archive
// versus a caller-supplied remote bundle).

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/wasd09090030/chartvault/internal/chart"
	"github.com/wasd09090030/chartvault/internal/database"
	"github.com/wasd09090030/chartvault/internal/logging"
)

// ChartFile is one chart text of a pre-uploaded bundle.
type ChartFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ImportRequest is the pre-uploaded bundle entry point's input. The
// caller has already placed all assets remotely and supplies their
// relative-path to URL mapping.
type ImportRequest struct {
	SourceFileName string         `json:"sourceFileName,omitempty"`
	StorageKey     string         `json:"storageKey,omitempty"`
	UploadedFiles  []UploadedFile `json:"uploadedFiles"`
	ChartFiles     []ChartFile    `json:"chartFiles"`
}

// ImportArchive ingests an uploaded .osz archive end to end: extract,
// parse, upload every extracted asset, persist the aggregate. The
// scratch directory is removed on every exit path; removal failures are
// logged and swallowed so they never mask the import outcome.
func (s *Service) ImportArchive(ctx context.Context, fileName string, data []byte) (*database.ChartSet, error) {
	if err := EnsureValidArchiveUpload(fileName, int64(len(data))); err != nil {
		return nil, err
	}
	if err := EnsureAssetStoreReady(s.storeCfg); err != nil {
		return nil, err
	}

	storageKey := BuildStorageKey(fileName)
	logger := logging.WithFields(ctx, "storage_key", storageKey)

	scratch, err := os.MkdirTemp("", "chartvault-import-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn("scratch directory cleanup failed", "dir", scratch, "error", err)
		}
	}()

	archivePath := filepath.Join(scratch, "upload"+ArchiveExt)
	if err := atomic.WriteFile(archivePath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write archive to scratch: %w", err)
	}

	extractRoot := filepath.Join(scratch, "extracted")
	files, err := extractArchive(archivePath, extractRoot, logger)
	if err != nil {
		return nil, err
	}

	resolver := chart.NewDirResolver(extractRoot)
	var parsed []*chart.ParsedChart
	for _, rel := range files {
		if !strings.EqualFold(path.Ext(rel), ChartFileExt) {
			continue
		}
		c, err := chart.ParseFile(extractRoot, rel, resolver)
		if err != nil {
			// Unreadable chart files are skipped like malformed
			// lines; the rest of the archive remains importable.
			logger.Warn("skipping unreadable chart file", "file", rel, "error", err)
			continue
		}
		parsed = append(parsed, c)
	}

	mania := filterMania(parsed)
	if err := EnsureHasEligibleCharts(mania); err != nil {
		return nil, err
	}

	uploadRoot := BuildUploadRoot(s.storeCfg.UploadFolder, storageKey)
	uploaded := make(map[string]string, len(files))
	for _, rel := range files {
		folder := CombineUploadFolder(uploadRoot, path.Dir(rel))
		url, err := s.store.Upload(ctx, filepath.Join(extractRoot, filepath.FromSlash(rel)), folder)
		if err != nil {
			return nil, ErrUploadFailed(rel, err)
		}
		uploaded[strings.ToLower(rel)] = url
	}

	set, diffs, err := BuildAggregate(mania, fileName, storageKey, uploaded)
	if err != nil {
		return nil, err
	}

	saved, err := s.gateway.SaveAggregate(ctx, set, diffs)
	if err != nil {
		return nil, fmt.Errorf("persist chart set: %w", err)
	}
	logger.Info("archive imported", "set_id", saved.ID, "difficulties", len(diffs))
	return saved, nil
}

// ImportUploaded ingests a bundle whose assets already live in the
// remote store. No extraction or upload happens; chart texts are parsed
// in map mode against the caller-supplied path to URL mapping.
func (s *Service) ImportUploaded(ctx context.Context, req *ImportRequest) (*database.ChartSet, error) {
	if err := EnsureValidImportRequest(req); err != nil {
		return nil, err
	}

	storageKey := req.StorageKey
	if storageKey == "" {
		storageKey = BuildStorageKey(req.SourceFileName)
	}

	logger := logging.WithFields(ctx, "storage_key", storageKey)

	uploaded := NormalizeUploadedFileMap(req.UploadedFiles)
	resolver := chart.NewMapResolver(uploaded)

	var parsed []*chart.ParsedChart
	for _, cf := range req.ChartFiles {
		c, err := chart.ParseContent(cf.Path, cf.Content, resolver)
		if err != nil {
			logger.Warn("skipping unparseable chart text", "file", cf.Path, "error", err)
			continue
		}
		parsed = append(parsed, c)
	}

	mania := filterMania(parsed)
	if err := EnsureHasEligibleCharts(mania); err != nil {
		return nil, err
	}

	set, diffs, err := BuildAggregate(mania, req.SourceFileName, storageKey, uploaded)
	if err != nil {
		return nil, err
	}

	saved, err := s.gateway.SaveAggregate(ctx, set, diffs)
	if err != nil {
		return nil, fmt.Errorf("persist chart set: %w", err)
	}
	logger.Info("bundle imported", "set_id", saved.ID, "difficulties", len(diffs))
	return saved, nil
}

// filterMania keeps only fixed-column charts.
func filterMania(charts []*chart.ParsedChart) []*chart.ParsedChart {
	var mania []*chart.ParsedChart
	for _, c := range charts {
		if c.IsMania {
			mania = append(mania, c)
		}
	}
	return mania
}
