package httpclient

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethdenver2026/uristore/internal/node"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	transporthttp "github.com/ethdenver2026/uristore/internal/transport/http"
)

func testUpstream(t *testing.T) (*httptest.Server, store.Backend) {
	t.Helper()
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	n := node.New(memstore.New(r, func() int64 { tick++; return tick }))
	srv := httptest.NewServer(transporthttp.New(n, nil))
	t.Cleanup(srv.Close)
	return srv, n
}

func TestReceiveThenReadRoundTrip(t *testing.T) {
	srv, _ := testUpstream(t)
	c := New(srv.URL)

	recv := c.Receive(context.Background(), "mutable://open/a", "hello")
	require.NoError(t, recv.Err)
	require.True(t, recv.Accepted)

	read := c.Read(context.Background(), "mutable://open/a")
	require.True(t, read.Success)
	require.Equal(t, "hello", read.Record.Data)
}

func TestReadMissingRecordReturnsNotFound(t *testing.T) {
	srv, _ := testUpstream(t)
	c := New(srv.URL)

	read := c.Read(context.Background(), "mutable://open/missing")
	require.False(t, read.Success)
	require.Error(t, read.Err)
}

func TestListAndDelete(t *testing.T) {
	srv, _ := testUpstream(t)
	c := New(srv.URL)

	for _, name := range []string{"a", "b", "c"} {
		res := c.Receive(context.Background(), "mutable://open/"+name, name)
		require.NoError(t, res.Err)
	}

	listed := c.List(context.Background(), "mutable://open", store.ListOptions{})
	require.NoError(t, listed.Err)
	require.Len(t, listed.Data, 3)

	del := c.Delete(context.Background(), "mutable://open/a")
	require.True(t, del.Success)

	listed = c.List(context.Background(), "mutable://open", store.ListOptions{})
	require.NoError(t, listed.Err)
	require.Len(t, listed.Data, 2)
}

func TestHealthAndGetSchema(t *testing.T) {
	srv, _ := testUpstream(t)
	c := New(srv.URL)

	health := c.Health(context.Background())
	require.Equal(t, "ok", health.Status)

	keys := c.GetSchema()
	require.Contains(t, keys, "mutable://open")
}
