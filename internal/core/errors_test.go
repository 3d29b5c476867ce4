package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	appErr := NewTransportError("catalog search", inner, "stac.Client.Search")

	require.ErrorIs(t, appErr, inner)
	require.Equal(t, "catalog search: connection reset", appErr.Error())
	require.True(t, appErr.Retryable)

	wrapped := fmt.Errorf("service: %w", appErr)
	require.True(t, IsCode(wrapped, ErrorCodeTransport))
	require.False(t, IsCode(wrapped, ErrorCodeCorrupt))

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrorCodeTransport, got.Code)
}

func TestAppErrorWithHelpersCopy(t *testing.T) {
	t.Parallel()

	base := NewAppError(ErrorCodeInternal, "boom", nil)
	withMeta := base.WithMeta("url", "https://x/a.tif").WithOper("service.Run")

	require.Empty(t, base.Meta)
	require.Empty(t, base.Operation)
	require.Equal(t, "https://x/a.tif", withMeta.Meta["url"])
	require.Equal(t, "service.Run", withMeta.Operation)

	retryable := base.WithRetryable(true)
	require.False(t, base.Retryable)
	require.True(t, retryable.Retryable)
}

func TestAppErrorIsMatchesOnCode(t *testing.T) {
	t.Parallel()

	a := NewCatalogError("empty reply", nil, "op")
	b := NewCatalogError("other", nil, "op2")
	require.ErrorIs(t, a, b)

	c := NewPipelineError("merge", errors.New("exit 1"), "op")
	require.NotErrorIs(t, a, c)
	require.True(t, IsCode(c, ErrorCodePipeline))
	require.Equal(t, "merge", c.Meta["stage"])
}
