package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	b := NewBatch("run-1", &now, "https://x/a.tif", "https://x/b.tif", "https://x/c.tif")

	b.Assets[0].Status = AssetStatusCompleted
	b.Assets[0].Skipped = true

	b.Assets[1].Status = AssetStatusCompleted
	b.Assets[1].LocalPath = "out/input_2.tif"

	b.Assets[2].Status = AssetStatusFailed
	b.UpdateStatus(&now)

	r := Summarize("run-1", b)
	require.Equal(t, BatchStatusPartiallyCompleted, r.Status)
	require.Equal(t, 3, r.Discovered)
	require.Equal(t, 1, r.Skipped)
	require.Equal(t, 1, r.Downloaded)
	require.Equal(t, 1, r.Failed)
	require.Equal(t, []string{"out/input_2.tif"}, r.InputFiles)
	require.False(t, r.PipelineSkipped)
}

func TestSummarizeNothingNew(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	b := NewBatch("run-2", &now, "https://x/a.tif")
	b.Assets[0].Status = AssetStatusCompleted
	b.Assets[0].Skipped = true
	b.UpdateStatus(&now)

	r := Summarize("run-2", b)
	require.Equal(t, BatchStatusCompleted, r.Status)
	require.Equal(t, 1, r.Skipped)
	require.Empty(t, r.InputFiles)
	require.True(t, r.PipelineSkipped)
}

func TestSummarizeNilBatch(t *testing.T) {
	t.Parallel()

	r := Summarize("run-3", nil)
	require.Zero(t, r.Discovered)
	require.Equal(t, BatchStatusCompleted, r.Status)
	require.True(t, r.PipelineSkipped)
}
