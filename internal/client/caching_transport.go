// Package client builds the HTTP clients the API packages sit on.
package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client with response caching.
// Used underneath the resource-manager client, where the delegation
// verifier re-reads the same role definitions across subscriptions. An
// empty cacheDir keeps the cache in memory for the duration of the run;
// a directory persists it across runs.
func NewCachingHTTPClient(cacheDir string) *http.Client {
	if cacheDir == "" {
		return &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
		}
	}

	return &http.Client{
		Transport: httpcache.NewTransport(diskcache.New(cacheDir)),
	}
}
