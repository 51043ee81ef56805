// Package memstore is the in-memory storage backend: a sync.Mutex
// guarding a plain map, sized for a single process and tests rather
// than durability.
package memstore

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Store is a process-local, mutex-guarded Backend. It runs the full
// receive algorithm against its own registry rather than relying on a
// wrapping layer to validate first.
type Store struct {
	mu       sync.Mutex
	data     map[string]store.Record
	now      func() int64
	registry *schema.Registry
}

// New builds an empty Store backed by registry. now supplies the clock
// used to timestamp records; pass a fixed function in tests for
// determinism.
func New(registry *schema.Registry, now func() int64) *Store {
	return &Store{data: make(map[string]store.Record), now: now, registry: registry}
}

func (s *Store) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	return store.Accept(ctx, s.registry, s.now, s.persist, s.exists, u, value)
}

func (s *Store) persist(_ context.Context, u string, ts int64, encoded interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[u] = store.Record{Ts: ts, Data: encoded}
	return nil
}

func (s *Store) exists(_ context.Context, u string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[u]
	return ok, nil
}

func (s *Store) Read(_ context.Context, u string) store.ReadResult {
	s.mu.Lock()
	rec, ok := s.data[u]
	s.mu.Unlock()
	if !ok {
		return store.ReadResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	return store.ReadResult{Success: true, Record: store.Decode(&rec)}
}

func (s *Store) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return nil, apierr.New(apierr.ValidationFailed, "readMulti accepts at most 50 uris")
	}
	out := make([]store.MultiReadResult, 0, len(uris))
	for _, u := range uris {
		out = append(out, store.MultiReadResult{URI: u, ReadResult: s.Read(ctx, u)})
	}
	return out, nil
}

func (s *Store) List(_ context.Context, prefix string, opts store.ListOptions) store.ListResult {
	s.mu.Lock()
	entries := collectEntries(s.data, prefix)
	s.mu.Unlock()

	if opts.Pattern != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if ok, _ := filepath.Match(opts.Pattern, e.URI); ok {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	sortEntries(entries, opts.SortBy, opts.SortOrder)

	total := len(entries)
	page, limit := normalizePage(opts)
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	window := entries[start:end]

	return store.ListResult{
		Data:       window,
		Pagination: store.Pagination{Page: page, Limit: limit, Total: total},
	}
}

func (s *Store) Delete(_ context.Context, u string) store.DeleteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[u]; !ok {
		return store.DeleteResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	delete(s.data, u)
	return store.DeleteResult{Success: true}
}

func (s *Store) Health(context.Context) store.HealthStatus {
	s.mu.Lock()
	n := len(s.data)
	s.mu.Unlock()
	return store.HealthStatus{Status: "ok", Details: map[string]interface{}{"records": n}}
}

// GetSchema returns every program key registered with this store's
// registry, answering GET /api/v1/schema.
func (s *Store) GetSchema() []string { return s.registry.ProgramKeys() }

func (s *Store) Cleanup(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]store.Record)
}

// collectEntries resolves the immediate listing of prefix: an exact
// file match plus one directory entry per distinct next path segment
// among prefix's descendants, mirroring S3-style delimiter listings.
func collectEntries(data map[string]store.Record, prefix string) []store.Entry {
	dirTs := make(map[string]int64)
	var out []store.Entry
	for candidate, rec := range data {
		if candidate == prefix {
			out = append(out, store.Entry{URI: candidate, Type: store.EntryFile, Ts: rec.Ts})
			continue
		}
		if !uri.IsDirectory(candidate, prefix) {
			continue
		}
		rest := strings.TrimPrefix(candidate, prefix+"/")
		seg := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seg = rest[:idx]
		}
		childURI := prefix + "/" + seg
		if rec.Ts > dirTs[childURI] {
			dirTs[childURI] = rec.Ts
		}
	}
	for childURI, ts := range dirTs {
		out = append(out, store.Entry{URI: childURI, Type: store.EntryDirectory, Ts: ts})
	}
	return out
}

func sortEntries(entries []store.Entry, by store.SortBy, order store.SortOrder) {
	less := func(i, j int) bool { return entries[i].URI < entries[j].URI }
	if by == store.SortByTimestamp {
		less = func(i, j int) bool { return entries[i].Ts < entries[j].Ts }
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if order == store.SortDesc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func normalizePage(opts store.ListOptions) (page, limit int) {
	page = opts.Page
	if page < 1 {
		page = 1
	}
	limit = opts.Limit
	if !opts.LimitSet {
		limit = 50
	} else if limit < 0 {
		limit = 0
	}
	return page, limit
}
