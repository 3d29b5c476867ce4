package core

import "time"

// Batch is one run's worth of imagery assets, in discovery order.
type Batch struct {
	RunID  string      `json:"run_id"`
	Assets []*Asset    `json:"assets"`
	Status BatchStatus `json:"status"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func NewBatch(runID string, now *time.Time, urls ...string) *Batch {
	assets := make([]*Asset, 0, len(urls))
	for i, url := range urls {
		assets = append(assets, &Asset{URL: url, Index: i + 1, Status: AssetStatusPending})
	}
	return &Batch{
		RunID:     runID,
		Assets:    assets,
		Status:    BatchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateStatus re-derives the batch status from the asset statuses and
// bumps UpdatedAt when it changed.
func (b *Batch) UpdateStatus(now *time.Time) {
	st := deriveStatus(b.Assets)
	if st != b.Status {
		b.Status = st
		b.UpdatedAt = now
	}
}

// InputFiles returns local paths of completed assets in discovery order,
// skipping assets that were already complete before this run.
func (b *Batch) InputFiles() []string {
	res := make([]string, 0, len(b.Assets))
	for _, a := range b.Assets {
		if a.Status == AssetStatusCompleted && !a.Skipped && a.LocalPath != "" {
			res = append(res, a.LocalPath)
		}
	}
	return res
}

// Asset is a single downloadable raster within a batch.
type Asset struct {
	URL string `json:"url"`
	// Index is the 1-based discovery position, also used for the local name.
	Index int `json:"index"`
	// LocalPath is where the raster was saved. Empty until downloaded.
	LocalPath string      `json:"local_path,omitempty"`
	Status    AssetStatus `json:"status"`
	// Skipped marks an asset that was already completed in a previous run.
	Skipped bool `json:"skipped,omitempty"`

	Size int64 `json:"size_bytes,omitempty"` // Final size after good download

	Error string `json:"error,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
