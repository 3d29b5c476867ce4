package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/core"
)

const (
	// MergedFileName is the warped+merged raster inside the output dir.
	MergedFileName = "final_merge.tif"
	// TilesFileName is the web-tile database inside the output dir.
	TilesFileName = "final_merge_raster.mbtiles"
	// ManifestFileName lists the input rasters, one path per line.
	// Working-directory-relative, same as the tools consume it.
	ManifestFileName = "input_files.txt"
)

// Artifacts are the paths produced by a completed build.
type Artifacts struct {
	MergedPath string
	TilesPath  string
}

type BuilderConfig struct {
	OutputDir string

	// ManifestPath overrides where the input list is written.
	// Default: ManifestFileName in the working directory.
	ManifestPath string

	// Threads is the warp worker setting handed to the tool.
	// Default: ALL_CPUS
	Threads string
}

// Builder drives the fixed four-stage raster chain: merge+reproject,
// overview build, tiling, tile overview build. Each stage's exit status
// is checked before the next starts; there is no rollback of artifacts
// from earlier successful stages.
type Builder struct {
	runner Runner
	logger *zap.Logger

	outputDir    string
	manifestPath string
	threads      string
}

func NewBuilder(runner Runner, cfg *BuilderConfig, logger *zap.Logger) (*Builder, error) {
	if runner == nil {
		return nil, errors.New("pipeline: required runner")
	}
	if cfg == nil {
		return nil, errors.New("pipeline: required config")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("pipeline: required output dir")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manifestPath := cfg.ManifestPath
	if manifestPath == "" {
		manifestPath = ManifestFileName
	}
	threads := cfg.Threads
	if threads == "" {
		threads = "ALL_CPUS"
	}

	return &Builder{
		runner:       runner,
		logger:       logger,
		outputDir:    cfg.OutputDir,
		manifestPath: manifestPath,
		threads:      threads,
	}, nil
}

// Build writes the manifest and runs the four stages in strict sequence.
func (b *Builder) Build(ctx context.Context, inputs []string) (*Artifacts, error) {
	const op = "pipeline.Builder.Build"
	if len(inputs) == 0 {
		return nil, errors.New("pipeline: no input files")
	}

	if err := b.writeManifest(inputs); err != nil {
		return nil, err
	}

	merged := filepath.Join(b.outputDir, MergedFileName)
	tiles := filepath.Join(b.outputDir, TilesFileName)

	stages := []struct {
		name string
		tool string
		args []string
	}{
		{"merge", "gdalwarp", b.warpArgs(merged)},
		{"merge-overviews", "gdaladdo", b.mergeOverviewArgs(merged)},
		{"tile", "gdal_translate", b.translateArgs(merged, tiles)},
		{"tile-overviews", "gdaladdo", b.tileOverviewArgs(tiles)},
	}

	for _, st := range stages {
		b.logger.Info("pipeline stage", zap.String("stage", st.name))
		if err := b.runner.Run(ctx, st.tool, st.args); err != nil {
			return nil, core.NewPipelineError(st.name, err, op)
		}
	}

	b.logger.Info("pipeline done",
		zap.String("merged", merged),
		zap.String("tiles", tiles),
	)
	return &Artifacts{MergedPath: merged, TilesPath: tiles}, nil
}

func (b *Builder) writeManifest(inputs []string) error {
	data := strings.Join(inputs, "\n") + "\n"
	if err := os.WriteFile(b.manifestPath, []byte(data), 0o644); err != nil {
		return fmt.Errorf("pipeline: write manifest: %w", err)
	}
	return nil
}

func (b *Builder) warpArgs(merged string) []string {
	return []string{
		"-overwrite", "-r", "lanczos",
		"-co", "COMPRESS=LZW",
		"-co", "TILED=YES",
		"-co", "BLOCKXSIZE=256",
		"-co", "BLOCKYSIZE=256",
		"-co", "PREDICTOR=2",
		"-co", "BIGTIFF=YES",
		"-t_srs", "EPSG:3857",
		"-tr", "0.3", "0.3",
		"-tap",
		"-multi",
		"-wo", "NUM_THREADS=" + b.threads,
		"-of", "GTiff",
		"-dstnodata", "0",
		"-srcnodata", "0",
		"-input_file_list", b.manifestPath,
		merged,
	}
}

func (b *Builder) mergeOverviewArgs(merged string) []string {
	return []string{
		"-r", "average", "-ro",
		"--config", "COMPRESS_OVERVIEW", "LZW",
		"--config", "PREDICTOR_OVERVIEW", "2",
		merged,
		"2", "4", "8", "16", "32", "64", "128",
	}
}

func (b *Builder) translateArgs(merged, tiles string) []string {
	return []string{
		"-of", "MBTILES",
		"-co", "TILE_FORMAT=JPG",
		"-co", "QUALITY=95",
		"-co", "ZOOM_LEVEL_STRATEGY=LOWER",
		"-co", "RESAMPLING=CUBIC",
		"-co", "COMPRESS=LZW",
		"-co", "MINZOOM=1",
		"-co", "MAXZOOM=16",
		merged, tiles,
	}
}

func (b *Builder) tileOverviewArgs(tiles string) []string {
	return []string{
		"-r", "cubic",
		"--config", "COMPRESS_OVERVIEW", "JPEG",
		"--config", "JPEG_QUALITY_OVERVIEW", "95",
		tiles,
		"2", "4", "8", "16", "32", "64", "128",
		"256", "512", "1024", "2048", "4096", "8192", "16384", "32768",
	}
}
