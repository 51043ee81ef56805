package compose

import (
	"context"
	"testing"

	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

func newMemBackend() store.Backend {
	r := schema.NewRegistry()
	schema.RegisterBuiltins(r)
	tick := int64(0)
	return memstore.New(r, func() int64 { tick++; return tick })
}

func TestParallelBroadcastRequiresAllSuccess(t *testing.T) {
	a, b := newMemBackend(), newMemBackend()
	p := NewParallelBroadcast(a, b)

	res := p.Receive(context.Background(), "mutable://open/x", "hello")
	require.True(t, res.Accepted)

	gotA := a.Read(context.Background(), "mutable://open/x")
	gotB := b.Read(context.Background(), "mutable://open/x")
	require.True(t, gotA.Success)
	require.True(t, gotB.Success)
}

func TestParallelBroadcastFailsIfAnyBackendFails(t *testing.T) {
	a, b := newMemBackend(), newMemBackend()
	p := NewParallelBroadcast(a, b)

	res := p.Receive(context.Background(), "carrier-pigeon://open/x", "hello")
	require.False(t, res.Accepted)
	require.Error(t, res.Err)
}

func TestFirstMatchSequenceReceiveStopsAtFirstAccept(t *testing.T) {
	a, b := newMemBackend(), newMemBackend()
	f := NewFirstMatchSequence(a, b)

	res := f.Receive(context.Background(), "mutable://open/x", "hello")
	require.True(t, res.Accepted)

	gotA := a.Read(context.Background(), "mutable://open/x")
	gotB := b.Read(context.Background(), "mutable://open/x")
	require.True(t, gotA.Success)
	require.False(t, gotB.Success, "second backend should never be contacted once the first accepts")
}

func TestFirstMatchSequenceReadReturnsFirstSuccess(t *testing.T) {
	a, b := newMemBackend(), newMemBackend()
	b.Receive(context.Background(), "mutable://open/only-in-b", "from-b")
	f := NewFirstMatchSequence(a, b)

	got := f.Read(context.Background(), "mutable://open/only-in-b")
	require.True(t, got.Success)
	require.Equal(t, "from-b", got.Record.Data)
}

func TestFirstMatchSequenceReadFailsWithLastErrorWhenAllMiss(t *testing.T) {
	a, b := newMemBackend(), newMemBackend()
	f := NewFirstMatchSequence(a, b)

	got := f.Read(context.Background(), "mutable://open/nowhere")
	require.False(t, got.Success)
	require.Error(t, got.Err)
}
