package ws

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethdenver2026/uristore/internal/node"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	n := node.New(memstore.New(r, func() int64 { tick++; return tick }))
	srv := New(n, slog.Default())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestClientReceiveThenRead(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(wsURL(ts), 3, 5*time.Second, slog.Default())
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	resp, err := c.Call(TypeReceive, receivePayload{URI: "mutable://open/a", Value: "hello"})
	require.NoError(t, err)
	require.True(t, resp.Success)

	resp, err = c.Call(TypeRead, readPayload{URI: "mutable://open/a"})
	require.NoError(t, err)
	require.True(t, resp.Success)
}

func TestClientReadMissingReturnsUnsuccessfulFrame(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(wsURL(ts), 3, 5*time.Second, slog.Default())
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	resp, err := c.Call(TypeRead, readPayload{URI: "mutable://open/missing"})
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)
}

func TestClientHealthAndSchema(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(wsURL(ts), 3, 5*time.Second, slog.Default())
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	resp, err := c.Call(TypeHealth, struct{}{})
	require.NoError(t, err)
	require.True(t, resp.Success)

	resp, err = c.Call(TypeSchema, struct{}{})
	require.NoError(t, err)
	require.True(t, resp.Success)
}
