package stac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/rzagha1/NAIP-Basemap-Download/internal/core"
	"github.com/rzagha1/NAIP-Basemap-Download/internal/httpx"
)

// datetimeLayout is the timestamp format the catalog returns.
const datetimeLayout = "2006-01-02T15:04:05Z"

type searchBody struct {
	Collections []string          `json:"collections"`
	Intersects  *geojson.Geometry `json:"intersects"`
	Limit       int               `json:"limit"`
	Query       map[string]any    `json:"query"`
}

type searchReply struct {
	Features []Feature `json:"features"`
}

// Feature is one catalog record. Only the fields the build consumes.
type Feature struct {
	Properties struct {
		Datetime string `json:"datetime"`
	} `json:"properties"`
	Assets struct {
		Image struct {
			Href string `json:"href"`
		} `json:"image"`
	} `json:"assets"`
}

// Time parses the feature timestamp. Zero time on a malformed value.
func (f *Feature) Time() time.Time {
	t, err := time.Parse(datetimeLayout, f.Properties.Datetime)
	if err != nil {
		return time.Time{}
	}
	return t
}

type ClientConfig struct {
	Endpoint    string
	Collection  string
	Limit       int
	MinDatetime string
	Region      orb.Polygon
}

// Client issues search requests against one STAC endpoint.
type Client struct {
	http   *httpx.Client
	cfg    ClientConfig
	logger *zap.Logger
}

func NewClient(http *httpx.Client, cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if http == nil {
		return nil, errors.New("stac: required http client")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("stac: required endpoint")
	}
	if cfg.Collection == "" {
		return nil, errors.New("stac: required collection")
	}
	if len(cfg.Region) == 0 {
		cfg.Region = DefaultRegion()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{http: http, cfg: cfg, logger: logger}, nil
}

// Search runs one catalog query and returns the raw feature list.
func (c *Client) Search(ctx context.Context) ([]Feature, error) {
	const op = "stac.Client.Search"

	body := searchBody{
		Collections: []string{c.cfg.Collection},
		Intersects:  geojson.NewGeometry(c.cfg.Region),
		Limit:       c.cfg.Limit,
		Query: map[string]any{
			"datetime": map[string]any{"gte": c.cfg.MinDatetime},
		},
	}

	reply := searchReply{}
	if err := c.http.PostJSON(ctx, c.cfg.Endpoint, body, &reply); err != nil {
		return nil, core.NewTransportError("catalog search", err, op)
	}

	c.logger.Info("catalog search done",
		zap.String("collection", c.cfg.Collection),
		zap.Int("features", len(reply.Features)),
	)
	return reply.Features, nil
}

// AssetURLs runs Search and reduces the features to the ordered list of
// image asset URLs for the most recent year: sort by descending datetime,
// keep only features of the latest year present, dedupe hrefs preserving
// first-seen order. An empty catalog yields an empty list, not an error;
// a non-empty catalog that yields no usable URL is a catalog error.
func (c *Client) AssetURLs(ctx context.Context) ([]string, error) {
	const op = "stac.Client.AssetURLs"

	features, err := c.Search(ctx)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, nil
	}

	urls := SelectLatestYearURLs(features, c.logger)
	if len(urls) == 0 {
		return nil, core.NewCatalogError("features carry no usable image asset", nil, op)
	}
	return urls, nil
}

// SelectLatestYearURLs filters features to the most recent year present
// and extracts deduplicated asset URLs in first-seen order. Features with
// a malformed datetime are skipped, so one bad record cannot shift the
// latest year or drop the valid ones.
func SelectLatestYearURLs(features []Feature, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}

	sorted := make([]Feature, 0, len(features))
	for _, f := range features {
		if f.Time().IsZero() {
			logger.Warn("skipping feature with malformed datetime",
				zap.String("datetime", f.Properties.Datetime),
			)
			continue
		}
		sorted = append(sorted, f)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Properties.Datetime > sorted[j].Properties.Datetime
	})

	latestYear := sorted[0].Time().Year()
	logger.Info("selecting most recent year", zap.Int("year", latestYear))

	seen := make(map[string]bool)
	urls := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if f.Time().Year() != latestYear {
			continue
		}
		href := f.Assets.Image.Href
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		urls = append(urls, href)
	}

	logger.Info(fmt.Sprintf("found %d unique asset urls", len(urls)))
	return urls
}
