package client

import (
	"testing"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/stretchr/testify/require"
)

func TestNewCachingHTTPClientInMemory(t *testing.T) {
	hc := NewCachingHTTPClient("")

	transport, ok := hc.Transport.(*httpcache.Transport)
	require.True(t, ok)
	require.IsType(t, httpcache.NewMemoryCache(), transport.Cache)
}

func TestNewCachingHTTPClientOnDisk(t *testing.T) {
	hc := NewCachingHTTPClient(t.TempDir())

	transport, ok := hc.Transport.(*httpcache.Transport)
	require.True(t, ok)
	require.IsType(t, &diskcache.Cache{}, transport.Cache)
}
