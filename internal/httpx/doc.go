// Package httpx provides the HTTP session shared by the catalog search
// and the raster downloads.
//
// The client retries a fixed number of times on 500, 502, 503 and 504
// with exponential backoff. Connection-level failures and other 4xx
// statuses are not retried here; the download loop owns that policy.
package httpx
