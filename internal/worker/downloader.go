package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/httpx"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/progress"
)

type DownloaderConfig struct {
	Client *httpx.Client

	// MaxAttempts is the total number of tries per URL.
	// Default: 3
	MaxAttempts int
	// BackoffUnit scales the linear wait between tries: (attempt+1)*unit.
	// Default: 5s
	BackoffUnit time.Duration
	// ChunkSize is the copy buffer size.
	// Default: 32 KiB
	ChunkSize int

	// ProgressOutput receives the byte-progress display. Nil disables it.
	ProgressOutput io.Writer
}

// Downloader streams single rasters to disk with bounded retries.
type Downloader struct {
	client *httpx.Client
	logger *zap.Logger

	maxAttempts    int
	backoffUnit    time.Duration
	chunkSize      int
	progressOutput io.Writer
}

func NewDownloader(cfg *DownloaderConfig, logger *zap.Logger) (*Downloader, error) {
	if cfg == nil {
		return nil, errors.New("downloader: required config")
	}
	if cfg.Client == nil {
		return nil, errors.New("downloader: required http client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffUnit := cfg.BackoffUnit
	if backoffUnit <= 0 {
		backoffUnit = 5 * time.Second
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}

	return &Downloader{
		client:         cfg.Client,
		logger:         logger,
		maxAttempts:    maxAttempts,
		backoffUnit:    backoffUnit,
		chunkSize:      chunkSize,
		progressOutput: cfg.ProgressOutput,
	}, nil
}

// Fetch downloads url to destPath, retrying transport failures with
// linear backoff. On success the file is fully written and fsynced; on
// failure no partial file remains at destPath.
func (dlr *Downloader) Fetch(ctx context.Context, url, destPath string) (int64, error) {
	var size int64

	attempt := 0
	err := Retry(ctx, dlr.maxAttempts, dlr.backoffFn(), func(ctx context.Context) error {
		attempt++
		n, err := dlr.downloadOnce(ctx, url, destPath)
		if err != nil {
			dlr.logger.Warn("download attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		size = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("downloader: %s: %w", url, err)
	}
	return size, nil
}

func (dlr *Downloader) backoffFn() BackoffFunc {
	linear := LinearBackoff(dlr.backoffUnit)
	return func(attempt int) time.Duration {
		wait := linear(attempt)
		dlr.logger.Info("waiting before retry", zap.Duration("wait", wait))
		return wait
	}
}

func (dlr *Downloader) downloadOnce(ctx context.Context, url, destPath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	resp, err := dlr.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var reporter *progress.Reporter
	if dlr.progressOutput != nil {
		total := resp.ContentLength
		if total < 0 {
			total = 0
		}
		reporter = progress.NewReporter(progress.ReporterOptions{
			Label:     filepath.Base(destPath),
			TotalSize: total,
			Output:    dlr.progressOutput,
		})
	}

	n, err := dlr.writeFile(ctx, destPath, resp.Body, reporter)
	if reporter != nil && err == nil {
		reporter.Finish()
	}
	if err != nil {
		return n, fmt.Errorf("downloader: write: %w", err)
	}
	return n, nil
}

type contextReader struct {
	r   io.Reader
	ctx context.Context
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
		return cr.r.Read(p)
	}
}

func (dlr *Downloader) writeFile(
	ctx context.Context,
	destPath string,
	r io.Reader,
	reporter *progress.Reporter,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.OpenFile(tmpPath,
		os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644,
	)
	if err != nil {
		return 0, fmt.Errorf("open tmp: %w", err)
	}

	var dst io.Writer = f
	if reporter != nil {
		dst = io.MultiWriter(f, reporterWriter{reporter})
	}

	reader := &contextReader{r, ctx}
	buf := make([]byte, dlr.chunkSize)
	n, copyErr := io.CopyBuffer(dst, reader, buf)
	syncErr := f.Sync()
	closeErr := f.Close()

	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("copy body: %w", copyErr)
	} else if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	} else if syncErr != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("sync file: %w", syncErr)
	} else if closeErr != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("closing file: %w", closeErr)
	} else if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("rename tmp file: %w", err)
	}
	return n, nil
}

type reporterWriter struct {
	r *progress.Reporter
}

func (w reporterWriter) Write(p []byte) (int, error) {
	w.r.Add(int64(len(p)))
	return len(p), nil
}
