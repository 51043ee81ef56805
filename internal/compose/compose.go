// Package compose implements two backend composition clients:
// ParallelBroadcast, which fans a transaction out to every underlying
// backend and requires unanimous success, and FirstMatchSequence,
// which tries each backend in turn. Both implement store.Backend, so
// either can stand in anywhere a single backend is expected —
// including underneath another composition or an internal/node.Node.
package compose

import (
	"context"
	"sync"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/store"
)

// ParallelBroadcast fans receive out to every backend concurrently.
// read/list return the first backend's result; cleanup runs on all.
type ParallelBroadcast struct {
	backends []store.Backend
}

// NewParallelBroadcast wraps backends. Receive requires every backend
// to accept; a single failure fails the whole call, though the other
// fan-outs still run to completion and their results are discarded —
// there is no rollback.
func NewParallelBroadcast(backends ...store.Backend) *ParallelBroadcast {
	return &ParallelBroadcast{backends: backends}
}

func (p *ParallelBroadcast) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	results := make([]store.ReceiveResult, len(p.backends))
	var wg sync.WaitGroup
	for i, b := range p.backends {
		wg.Add(1)
		go func(i int, b store.Backend) {
			defer wg.Done()
			results[i] = b.Receive(ctx, u, value)
		}(i, b)
	}
	wg.Wait()

	for _, r := range results {
		if !r.Accepted {
			return store.ReceiveResult{Err: r.Err}
		}
	}
	return store.ReceiveResult{Accepted: true, Record: results[0].Record}
}

func (p *ParallelBroadcast) Read(ctx context.Context, u string) store.ReadResult {
	if len(p.backends) == 0 {
		return store.ReadResult{Err: apierr.New(apierr.BackendUnavailable, "no backends configured")}
	}
	return p.backends[0].Read(ctx, u)
}

func (p *ParallelBroadcast) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(p.backends) == 0 {
		return nil, apierr.New(apierr.BackendUnavailable, "no backends configured")
	}
	return p.backends[0].ReadMulti(ctx, uris)
}

func (p *ParallelBroadcast) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	if len(p.backends) == 0 {
		return store.ListResult{Err: apierr.New(apierr.BackendUnavailable, "no backends configured")}
	}
	return p.backends[0].List(ctx, prefix, opts)
}

func (p *ParallelBroadcast) Delete(ctx context.Context, u string) store.DeleteResult {
	results := make([]store.DeleteResult, len(p.backends))
	var wg sync.WaitGroup
	for i, b := range p.backends {
		wg.Add(1)
		go func(i int, b store.Backend) {
			defer wg.Done()
			results[i] = b.Delete(ctx, u)
		}(i, b)
	}
	wg.Wait()
	for _, r := range results {
		if !r.Success {
			return store.DeleteResult{Err: r.Err}
		}
	}
	return store.DeleteResult{Success: true}
}

func (p *ParallelBroadcast) Health(ctx context.Context) store.HealthStatus {
	if len(p.backends) == 0 {
		return store.HealthStatus{Status: "down", Message: "no backends configured"}
	}
	return p.backends[0].Health(ctx)
}

func (p *ParallelBroadcast) GetSchema() []string {
	if len(p.backends) == 0 {
		return nil
	}
	return p.backends[0].GetSchema()
}

func (p *ParallelBroadcast) Cleanup(ctx context.Context) {
	for _, b := range p.backends {
		b.Cleanup(ctx)
	}
}

// FirstMatchSequence tries each backend in order, stopping at the
// first one that handles the call.
type FirstMatchSequence struct {
	backends []store.Backend
}

// NewFirstMatchSequence wraps backends in priority order.
func NewFirstMatchSequence(backends ...store.Backend) *FirstMatchSequence {
	return &FirstMatchSequence{backends: backends}
}

// Receive attempts each backend in order until one accepts; later
// backends are not contacted once one succeeds.
func (f *FirstMatchSequence) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	var last store.ReceiveResult
	for _, b := range f.backends {
		res := b.Receive(ctx, u, value)
		if res.Accepted {
			return res
		}
		last = res
	}
	return last
}

// Read calls backends in order and returns the first non-"not found"
// success.
func (f *FirstMatchSequence) Read(ctx context.Context, u string) store.ReadResult {
	var last store.ReadResult
	for _, b := range f.backends {
		res := b.Read(ctx, u)
		if res.Success {
			return res
		}
		last = res
	}
	return last
}

func (f *FirstMatchSequence) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(f.backends) == 0 {
		return nil, apierr.New(apierr.BackendUnavailable, "no backends configured")
	}
	return f.backends[0].ReadMulti(ctx, uris)
}

func (f *FirstMatchSequence) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	var last store.ListResult
	for _, b := range f.backends {
		res := b.List(ctx, prefix, opts)
		if res.Err == nil {
			return res
		}
		last = res
	}
	return last
}

// Delete deletes from the first backend that reports success.
func (f *FirstMatchSequence) Delete(ctx context.Context, u string) store.DeleteResult {
	var last store.DeleteResult
	for _, b := range f.backends {
		res := b.Delete(ctx, u)
		if res.Success {
			return res
		}
		last = res
	}
	return last
}

func (f *FirstMatchSequence) Health(ctx context.Context) store.HealthStatus {
	if len(f.backends) == 0 {
		return store.HealthStatus{Status: "down", Message: "no backends configured"}
	}
	return f.backends[0].Health(ctx)
}

func (f *FirstMatchSequence) GetSchema() []string {
	if len(f.backends) == 0 {
		return nil
	}
	return f.backends[0].GetSchema()
}

func (f *FirstMatchSequence) Cleanup(ctx context.Context) {
	for _, b := range f.backends {
		b.Cleanup(ctx)
	}
}
