package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/core"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/pipeline"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/progress"
)

// CatalogQuerier yields the ordered, deduplicated asset URLs for a run.
type CatalogQuerier interface {
	AssetURLs(ctx context.Context) ([]string, error)
}

// Fetcher downloads one URL to a local path, retries included.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

// PipelineBuilder turns downloaded rasters into the final artifacts.
type PipelineBuilder interface {
	Build(ctx context.Context, inputs []string) (*pipeline.Artifacts, error)
}

// BasemapService runs one complete build: query, resumable downloads,
// external tool chain. Fully sequential; nothing here runs concurrently.
type BasemapService struct {
	catalog CatalogQuerier
	store   progress.Store
	fetcher Fetcher
	builder PipelineBuilder

	idGen     IDGenerator
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

type Options struct {
	Catalog CatalogQuerier
	Store   progress.Store
	Fetcher Fetcher
	Builder PipelineBuilder

	OutputDir string
	IDGen     IDGenerator
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewBasemapService(opts *Options) (*BasemapService, error) {
	if opts == nil {
		return nil, errors.New("service: required options")
	}
	if opts.Catalog == nil {
		return nil, errors.New("service: required catalog")
	}
	if opts.Store == nil {
		return nil, errors.New("service: required progress store")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("service: required fetcher")
	}
	if opts.Builder == nil {
		return nil, errors.New("service: required pipeline builder")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("service: required output dir")
	}

	idGen := opts.IDGen
	if idGen == nil {
		idGen = NewRandomIDGenerator("naip-run-")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &BasemapService{
		catalog:   opts.Catalog,
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		builder:   opts.Builder,
		idGen:     idGen,
		outputDir: opts.OutputDir,
		logger:    logger,
		now:       now,
	}, nil
}

// Run performs one build. A catalog failure degrades to "no images
// found"; a failed download skips to the next URL; an unreadable
// progress store or a failed pipeline stage is returned as an error.
func (s *BasemapService) Run(ctx context.Context) (*core.RunReport, error) {
	runID, err := s.idGen.NewID()
	if err != nil {
		return nil, fmt.Errorf("service: gen run id: %w", err)
	}
	logger := s.logger.With(zap.String("run_id", runID))

	urls, err := s.catalog.AssetURLs(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Degrades to an empty batch, same as an empty catalog.
		logger.Warn("catalog query failed", zap.Error(err))
		urls = nil
	}
	if len(urls) == 0 {
		logger.Info("no images found")
		return core.Summarize(runID, nil), nil
	}

	nowUTC := s.now().UTC()
	batch := core.NewBatch(runID, &nowUTC, urls...)

	for _, asset := range batch.Assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.store.Contains(asset.URL) {
			logger.Info("skipping already completed image",
				zap.Int("index", asset.Index),
				zap.Int("total", len(batch.Assets)),
			)
			skipped := s.now().UTC()
			asset.Status = core.AssetStatusCompleted
			asset.Skipped = true
			asset.CompletedAt = &skipped
			batch.UpdateStatus(&skipped)
			continue
		}

		logger.Info("processing image",
			zap.Int("index", asset.Index),
			zap.Int("total", len(batch.Assets)),
		)
		if err := s.downloadAsset(ctx, batch, asset, logger); err != nil {
			return nil, err
		}
	}

	report := core.Summarize(runID, batch)
	if report.PipelineSkipped {
		logger.Info("no new files to process")
		return report, nil
	}

	artifacts, err := s.builder.Build(ctx, report.InputFiles)
	if err != nil {
		return report, err
	}
	report.MergedPath = artifacts.MergedPath
	report.TilesPath = artifacts.TilesPath

	logger.Info("process complete", zap.String("output_dir", s.outputDir))
	return report, nil
}

// downloadAsset fetches one asset and records completion. A transport
// failure marks the asset failed and the batch continues; a progress
// store write failure is returned, since continuing would break the
// resume invariant.
func (s *BasemapService) downloadAsset(ctx context.Context, batch *core.Batch, asset *core.Asset, logger *zap.Logger) error {
	started := s.now().UTC()
	asset.Status = core.AssetStatusDownloading
	asset.StartedAt = &started
	batch.UpdateStatus(&started)

	dest := filepath.Join(s.outputDir, fmt.Sprintf("input_%d.tif", asset.Index))
	size, err := s.fetcher.Fetch(ctx, asset.URL, dest)
	finished := s.now().UTC()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("download failed, moving to next file",
			zap.Int("index", asset.Index),
			zap.Error(err),
		)
		asset.Status = core.AssetStatusFailed
		asset.Error = err.Error()
		batch.UpdateStatus(&finished)
		return nil
	}

	asset.Status = core.AssetStatusCompleted
	asset.LocalPath = dest
	asset.Size = size
	asset.CompletedAt = &finished
	batch.UpdateStatus(&finished)

	if err := s.store.Add(ctx, asset.URL); err != nil {
		return fmt.Errorf("service: record completion: %w", err)
	}
	return nil
}
