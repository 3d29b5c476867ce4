package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/config"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/httpx"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/pipeline"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/progress"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/service"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/stac"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/worker"
)

const (
	configAppName = "app"
	configExt     = "env"
	configDir     = "config"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout", "basemap_log.log"}
	cfg.ErrorOutputPaths = []string{"stderr", "basemap_log.log"}
	return cfg.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "basemap",
		Short: "Build a web-map basemap from the most recent NAIP imagery",
		Long: "basemap queries a STAC catalog for aerial imagery over a fixed region,\n" +
			"downloads the matching rasters with resumable progress tracking and runs\n" +
			"the GDAL chain that merges, reprojects and tiles them into MBTiles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	zapLogger, err := newLogger()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cant init logger: %v\n", err)
		return err
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	logger := zapLogger.Named("basemap")
	logger.Info("starting build", zap.Int("pid", os.Getpid()))

	cfg, err := config.LoadAppConfig(configAppName, configExt, configDir)
	if err != nil || cfg == nil {
		logger.Error("cant read config", zap.Error(err))
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Error("cant create output dir", zap.Error(err), zap.String("dir", cfg.OutputDir))
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("cant open progress store", zap.Error(err))
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	client := httpx.NewClient(httpx.Options{
		Timeout:       cfg.RequestTimeout,
		RetryAttempts: cfg.HTTPRetries,
		UserAgent:     cfg.UserAgent,
	})

	catalog, err := stac.NewClient(client, stac.ClientConfig{
		Endpoint:    cfg.StacEndpoint,
		Collection:  cfg.StacCollection,
		Limit:       cfg.SearchLimit,
		MinDatetime: cfg.MinDatetime,
	}, logger.Named("stac"))
	if err != nil {
		logger.Error("cant create catalog client", zap.Error(err))
		return err
	}

	downloader, err := worker.NewDownloader(&worker.DownloaderConfig{
		Client:         client,
		MaxAttempts:    cfg.DownloadMaxAttempts,
		BackoffUnit:    cfg.DownloadBackoffUnit,
		ChunkSize:      cfg.DownloadChunkSize,
		ProgressOutput: os.Stdout,
	}, logger.Named("download"))
	if err != nil {
		logger.Error("cant create downloader", zap.Error(err))
		return err
	}

	builder, err := pipeline.NewBuilder(
		pipeline.NewExecRunner(logger.Named("gdal")),
		&pipeline.BuilderConfig{
			OutputDir: cfg.OutputDir,
			Threads:   cfg.GDALThreads,
		},
		logger.Named("pipeline"),
	)
	if err != nil {
		logger.Error("cant create pipeline builder", zap.Error(err))
		return err
	}

	svc, err := service.NewBasemapService(&service.Options{
		Catalog:   catalog,
		Store:     store,
		Fetcher:   downloader,
		Builder:   builder,
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("cant create service", zap.Error(err))
		return err
	}

	report, err := svc.Run(ctx)
	if err != nil {
		logger.Error("build failed", zap.Error(err))
		return err
	}

	logger.Info("build done",
		zap.String("status", string(report.Status)),
		zap.Int("discovered", report.Discovered),
		zap.Int("skipped", report.Skipped),
		zap.Int("downloaded", report.Downloaded),
		zap.Int("failed", report.Failed),
		zap.Bool("pipeline_skipped", report.PipelineSkipped),
		zap.String("merged", report.MergedPath),
		zap.String("tiles", report.TilesPath),
	)
	return nil
}

func openStore(cfg *config.AppConfig) (progress.Store, error) {
	switch cfg.ProgressStoreMode {
	case "json":
		return progress.NewFileStore(cfg.OutputDir)
	case "bbolt":
		return progress.NewBoltStore(cfg.OutputDir)
	default:
		return nil, fmt.Errorf("unknown progress store mode %q", cfg.ProgressStoreMode)
	}
}
