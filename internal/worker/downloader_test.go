package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/httpx"
)

func newTestDownloader(t *testing.T, server *httptest.Server, maxAttempts int) *Downloader {
	t.Helper()
	client := httpx.NewClientWith(server.Client(), httpx.Options{
		Timeout:      time.Second,
		RetryBackoff: time.Millisecond,
	})
	dlr, err := NewDownloader(&DownloaderConfig{
		Client:      client,
		MaxAttempts: maxAttempts,
		BackoffUnit: time.Millisecond,
		ChunkSize:   8,
	}, nil)
	require.NoError(t, err)
	return dlr
}

func TestFetchOK(t *testing.T) {
	t.Parallel()

	msg := "not actually a tiff"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(msg))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "input_1.tif")
	dlr := newTestDownloader(t, server, 3)

	size, err := dlr.Fetch(context.Background(), server.URL+"/a.tif", dest)
	require.NoError(t, err)
	require.Equal(t, int64(len(msg)), size)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, msg, string(data))

	_, err = os.Stat(dest + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchRecoversAfterTransportFailures(t *testing.T) {
	t.Parallel()

	hits := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			// Drop the connection mid-request to force a transport error.
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte("third time lucky"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "input_1.tif")
	dlr := newTestDownloader(t, server, 3)

	size, err := dlr.Fetch(context.Background(), server.URL+"/a.tif", dest)
	require.NoError(t, err)
	require.Equal(t, int64(len("third time lucky")), size)
	require.Equal(t, int32(3), hits.Load())
}

func TestFetchExhaustsAttempts(t *testing.T) {
	t.Parallel()

	hits := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "input_1.tif")
	dlr := newTestDownloader(t, server, 3)

	_, err := dlr.Fetch(context.Background(), server.URL+"/a.tif", dest)
	require.Error(t, err)
	require.Equal(t, int32(3), hits.Load())

	// No partial file may survive a failed fetch.
	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dest + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchFailedStreamRemovesTmp(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte("short"))
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "input_1.tif")
	dlr := newTestDownloader(t, server, 1)

	_, err := dlr.Fetch(context.Background(), server.URL+"/a.tif", dest)
	require.Error(t, err)

	_, err = os.Stat(dest + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}
