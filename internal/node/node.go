// Package node implements the transaction pipeline: a thin wrapper
// around a storage backend that substitutes the caller's ":key" into
// the URI of Receive, Read, List and Delete before handing it down.
// ReadMulti, Health, GetSchema and Cleanup are direct pass-throughs.
// Node itself satisfies store.Backend and can be composed the same way
// a raw store or a compose.ParallelBroadcast / FirstMatchSequence can.
package node

import (
	"context"

	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

type callerKeyType struct{}

var callerKey = callerKeyType{}

// WithCallerPublicKey attaches the caller's public key (hex) to ctx so
// Receive can substitute it for the ":key" placeholder in a
// template URI. Transport handlers call this once per request after
// authenticating the caller.
func WithCallerPublicKey(ctx context.Context, pubKeyHex string) context.Context {
	return context.WithValue(ctx, callerKey, pubKeyHex)
}

func callerPublicKey(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey).(string)
	return v, ok && v != ""
}

// Node composes a schema-validating backend (already wired with its
// own registry — see internal/store/memstore, sqlstore, docstore) and
// normalises incoming URIs. It is itself a store.Backend, so it can sit
// underneath internal/compose or be driven directly by internal/transport.
type Node struct {
	backend store.Backend
}

// New wraps backend.
func New(backend store.Backend) *Node {
	return &Node{backend: backend}
}

// Receive substitutes ":key" with the context's caller public key, if
// any, then delegates to the backend. Substitution is the caller's own
// responsibility when no public key is present in ctx.
func (n *Node) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	if pub, ok := callerPublicKey(ctx); ok {
		u = uri.Substitute(u, map[string]string{":key": pub})
	}
	return n.backend.Receive(ctx, u, value)
}

func (n *Node) Read(ctx context.Context, u string) store.ReadResult {
	if pub, ok := callerPublicKey(ctx); ok {
		u = uri.Substitute(u, map[string]string{":key": pub})
	}
	return n.backend.Read(ctx, u)
}

func (n *Node) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	return n.backend.ReadMulti(ctx, uris)
}

func (n *Node) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	if pub, ok := callerPublicKey(ctx); ok {
		prefix = uri.Substitute(prefix, map[string]string{":key": pub})
	}
	return n.backend.List(ctx, prefix, opts)
}

func (n *Node) Delete(ctx context.Context, u string) store.DeleteResult {
	if pub, ok := callerPublicKey(ctx); ok {
		u = uri.Substitute(u, map[string]string{":key": pub})
	}
	return n.backend.Delete(ctx, u)
}

func (n *Node) Health(ctx context.Context) store.HealthStatus {
	return n.backend.Health(ctx)
}

func (n *Node) GetSchema() []string {
	return n.backend.GetSchema()
}

func (n *Node) Cleanup(ctx context.Context) {
	n.backend.Cleanup(ctx)
}
