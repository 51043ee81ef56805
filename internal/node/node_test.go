package node

import (
	"context"
	"testing"

	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

func newTestNode() *Node {
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	return New(memstore.New(r, func() int64 { tick++; return tick }))
}

func TestReceiveSubstitutesCallerKeyPlaceholder(t *testing.T) {
	n := newTestNode()
	ctx := WithCallerPublicKey(context.Background(), "abc123")

	res := n.Receive(ctx, "mutable://open/:key/profile", "hello")
	require.True(t, res.Accepted)

	got := n.Read(ctx, "mutable://open/abc123/profile")
	require.True(t, got.Success)
	require.Equal(t, "hello", got.Record.Data)
}

func TestReceiveLeavesPlaceholderWhenNoCallerKeyInContext(t *testing.T) {
	n := newTestNode()
	res := n.Receive(context.Background(), "mutable://open/:key/profile", "hello")
	require.True(t, res.Accepted)

	got := n.Read(context.Background(), "mutable://open/:key/profile")
	require.True(t, got.Success)
}

func TestGetSchemaPassesThrough(t *testing.T) {
	n := newTestNode()
	require.Contains(t, n.GetSchema(), "mutable://open")
}

func TestHealthPassesThrough(t *testing.T) {
	n := newTestNode()
	h := n.Health(context.Background())
	require.Equal(t, "ok", h.Status)
}
