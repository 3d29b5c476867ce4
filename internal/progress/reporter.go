package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ReporterOptions configures the per-download progress display.
type ReporterOptions struct {
	// Label identifies the download, usually the destination path.
	Label string

	// TotalSize is the server-declared size in bytes. Zero means unknown;
	// the display then shows bytes only, without a percentage.
	TotalSize int64

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is the minimum time between display updates.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter prints cumulative progress for one streaming download.
type Reporter struct {
	opts ReporterOptions

	mu        sync.Mutex
	written   int64
	startTime time.Time
	lastPrint time.Time
}

func NewReporter(opts ReporterOptions) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	now := time.Now()
	return &Reporter{opts: opts, startTime: now, lastPrint: now}
}

// Add records n more bytes written and refreshes the display when the
// update interval elapsed.
func (r *Reporter) Add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.written += n
	now := time.Now()
	if now.Sub(r.lastPrint) < r.opts.UpdateInterval {
		return
	}
	r.lastPrint = now
	r.print(false)
}

// Finish prints the final line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.print(true)
	fmt.Fprintln(r.opts.Output)
}

// Written returns the cumulative byte count.
func (r *Reporter) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *Reporter) print(final bool) {
	elapsed := time.Since(r.startTime).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := uint64(float64(r.written) / elapsed)

	if r.opts.TotalSize > 0 {
		percent := float64(r.written) / float64(r.opts.TotalSize) * 100
		if final {
			percent = 100
		}
		fmt.Fprintf(r.opts.Output, "\r%s: %.1f%% | %s / %s | %s/s    ",
			r.opts.Label,
			percent,
			humanize.IBytes(uint64(r.written)),
			humanize.IBytes(uint64(r.opts.TotalSize)),
			humanize.IBytes(speed),
		)
		return
	}

	fmt.Fprintf(r.opts.Output, "\r%s: %s | %s/s    ",
		r.opts.Label,
		humanize.IBytes(uint64(r.written)),
		humanize.IBytes(speed),
	)
}
