package stac_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/core"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/httpx"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/stac"
)

func feature(datetime, href string) map[string]any {
	return map[string]any{
		"properties": map[string]any{"datetime": datetime},
		"assets": map[string]any{
			"image": map[string]any{"href": href},
		},
	}
}

func newCatalog(t *testing.T, server *httptest.Server) *stac.Client {
	t.Helper()
	client := httpx.NewClientWith(server.Client(), httpx.Options{
		Timeout:      time.Second,
		RetryBackoff: time.Millisecond,
	})
	catalog, err := stac.NewClient(client, stac.ClientConfig{
		Endpoint:    server.URL,
		Collection:  "naip",
		Limit:       100,
		MinDatetime: "2018-01-01",
	}, nil)
	require.NoError(t, err)
	return catalog
}

func TestAssetURLsLatestYearAndDedup(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		req := map[string]any{}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, []any{"naip"}, req["collections"])
		require.Equal(t, float64(100), req["limit"])
		require.NotNil(t, req["intersects"])

		query := req["query"].(map[string]any)
		datetime := query["datetime"].(map[string]any)
		require.Equal(t, "2018-01-01", datetime["gte"])

		reply := map[string]any{"features": []any{
			feature("2023-06-01T00:00:00Z", "https://x/A.tif"),
			feature("2023-07-01T00:00:00Z", "https://x/B.tif"),
			feature("2022-05-01T00:00:00Z", "https://x/A.tif"),
		}}
		require.NoError(t, json.NewEncoder(w).Encode(reply))
	}))
	t.Cleanup(server.Close)

	urls, err := newCatalog(t, server).AssetURLs(context.Background())
	require.NoError(t, err)
	// 2022 is dropped, remaining hrefs sorted by descending datetime
	// and deduplicated preserving first-seen order.
	require.Equal(t, []string{"https://x/B.tif", "https://x/A.tif"}, urls)
}

func TestAssetURLsEmptyCatalog(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	t.Cleanup(server.Close)

	urls, err := newCatalog(t, server).AssetURLs(context.Background())
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestAssetURLsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	_, err := newCatalog(t, server).AssetURLs(context.Background())
	require.Error(t, err)
	require.True(t, core.IsCode(err, core.ErrorCodeTransport),
		"want transport error, got %v", err,
	)
}

func TestSelectLatestYearURLsKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	features := []stac.Feature{}
	raw := []map[string]any{
		feature("2023-06-01T00:00:00Z", "https://x/A.tif"),
		feature("2023-07-01T00:00:00Z", "https://x/B.tif"),
		feature("2023-07-01T00:00:00Z", "https://x/B.tif"),
		feature("2021-01-01T00:00:00Z", "https://x/C.tif"),
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &features))

	urls := stac.SelectLatestYearURLs(features, nil)
	require.Equal(t, []string{"https://x/B.tif", "https://x/A.tif"}, urls)
}

func TestSelectLatestYearURLsSkipsMalformedDatetime(t *testing.T) {
	t.Parallel()

	features := []stac.Feature{}
	raw := []map[string]any{
		// A lexicographically large junk datetime must not become the
		// latest year and wipe out every valid feature.
		feature("not-a-datetime", "https://x/Z.tif"),
		feature("2023-06-01T00:00:00Z", "https://x/A.tif"),
		feature("2023-07-01T00:00:00Z", "https://x/B.tif"),
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &features))

	urls := stac.SelectLatestYearURLs(features, nil)
	require.Equal(t, []string{"https://x/B.tif", "https://x/A.tif"}, urls)
}

func TestAssetURLsNoUsableFeatures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := map[string]any{"features": []any{
			feature("garbage", "https://x/A.tif"),
			feature("also garbage", "https://x/B.tif"),
		}}
		require.NoError(t, json.NewEncoder(w).Encode(reply))
	}))
	t.Cleanup(server.Close)

	_, err := newCatalog(t, server).AssetURLs(context.Background())
	require.Error(t, err)
	require.True(t, core.IsCode(err, core.ErrorCodeCatalog),
		"want catalog error, got %v", err,
	)
}

func TestSelectLatestYearURLsEmpty(t *testing.T) {
	t.Parallel()
	require.Empty(t, stac.SelectLatestYearURLs(nil, nil))
}
