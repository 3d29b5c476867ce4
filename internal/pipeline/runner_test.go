package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/pipeline"
)

func TestExecRunnerZeroExit(t *testing.T) {
	t.Parallel()

	r := pipeline.NewExecRunner(nil)
	require.NoError(t, r.Run(context.Background(), "sh", []string{"-c", "exit 0"}))
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	t.Parallel()

	r := pipeline.NewExecRunner(nil)
	err := r.Run(context.Background(), "sh", []string{"-c", "exit 3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exited with code 3")
}

func TestExecRunnerMissingCommand(t *testing.T) {
	t.Parallel()

	r := pipeline.NewExecRunner(nil)
	require.Error(t, r.Run(context.Background(), "definitely-not-a-real-tool", nil))
	require.Error(t, r.Run(context.Background(), "", nil))
}
